package gatekeeper

import "errors"

var (
	errMalformedAmount         = errors.New("authorized amount is not a smallest-unit integer")
	errInsufficientPayment     = errors.New("authorized amount is less than the policy's required amount")
	errAddressMismatch         = errors.New("authorization names a different payment address than policy requires")
	errMintMismatch            = errors.New("authorization names a different token mint than policy requires")
	errNetworkMismatch         = errors.New("authorization names a different network than policy requires")
	errVerificationFailed      = errors.New("on-chain verification did not find a matching confirmed transfer")
	errAlreadyClaimedElsewhere = errors.New("payment_id was already claimed against a different resource")
)
