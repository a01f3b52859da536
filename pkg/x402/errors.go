package x402

import (
	"fmt"
	"net/http"
)

// Code is a machine-readable x402 error identifier. The wire-protocol codes
// are a closed set (below); implementation-local codes extend it for the
// payer's policy layer and the gatekeeper's field-validation steps, and are
// never required of a conformant peer.
type Code string

// Wire-protocol codes.
const (
	CodePaymentRequired           Code = "PAYMENT_REQUIRED"
	CodePaymentExpired            Code = "PAYMENT_EXPIRED"
	CodeInsufficientFunds         Code = "INSUFFICIENT_FUNDS"
	CodePaymentVerificationFailed Code = "PAYMENT_VERIFICATION_FAILED"
	CodeTransactionBroadcastFail  Code = "TRANSACTION_BROADCAST_FAILED"
	CodeInvalidPaymentRequest     Code = "INVALID_PAYMENT_REQUEST"
)

// Implementation-local codes.
const (
	CodePaymentLimitExceeded   Code = "PAYMENT_LIMIT_EXCEEDED"
	CodeMaxRetriesExceeded     Code = "MAX_RETRIES_EXCEEDED"
	CodeInsufficientPayment    Code = "INSUFFICIENT_PAYMENT"
	CodePaymentAddressMismatch Code = "PAYMENT_ADDRESS_MISMATCH"
	CodeTokenMintMismatch      Code = "TOKEN_MINT_MISMATCH"
	CodeNetworkMismatch        Code = "NETWORK_MISMATCH"
	CodeInternalError          Code = "INTERNAL_ERROR"
)

// Retryable reports whether a caller receiving this code may reasonably
// retry the same operation, typically after obtaining a fresh challenge.
func (c Code) Retryable() bool {
	switch c {
	case CodePaymentRequired,
		CodePaymentVerificationFailed,
		CodeTransactionBroadcastFail:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a code to the HTTP status the gatekeeper writes for it.
func (c Code) HTTPStatus() int {
	switch c {
	case CodePaymentRequired:
		return http.StatusPaymentRequired
	case CodeInvalidPaymentRequest:
		return http.StatusBadRequest
	case CodePaymentExpired,
		CodeInsufficientPayment,
		CodePaymentAddressMismatch,
		CodeTokenMintMismatch,
		CodeNetworkMismatch,
		CodePaymentVerificationFailed:
		return http.StatusForbidden
	case CodeInsufficientFunds,
		CodeTransactionBroadcastFail,
		CodePaymentLimitExceeded,
		CodeMaxRetriesExceeded:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error is a general wire-model error: malformed requests/authorizations,
// expired challenges, and anything else raised outside the chain adapter's
// on-chain verification path (see VerificationError for that one).
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err under code with the code's default user-facing message.
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Message: DefaultMessage(code), Err: err}
}

// Wrap is an alias for NewError kept for call sites that read more naturally
// wrapping an existing error than constructing a fresh one.
func Wrap(code Code, err error) *Error {
	return NewError(code, err)
}

// VerificationError classifies a failure encountered by a Verifier. It keeps
// the teacher's shape (machine code + user-facing message + wrapped cause)
// but is rebased onto the closed Code taxonomy instead of the open
// ErrorCode string space the teacher used across its whole service.
type VerificationError struct {
	Code    Code
	Message string
	Err     error
}

func (e VerificationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e VerificationError) Unwrap() error {
	return e.Err
}

// NewVerificationError creates a new verification error with a default
// user-friendly message for the code.
func NewVerificationError(code Code, err error) VerificationError {
	return VerificationError{
		Code:    code,
		Message: DefaultMessage(code),
		Err:     err,
	}
}

// DefaultMessage returns a stable, user-facing message for a code.
func DefaultMessage(code Code) string {
	switch code {
	case CodePaymentRequired:
		return "payment is required to access this resource"
	case CodePaymentExpired:
		return "the payment challenge or authorization has expired"
	case CodeInsufficientFunds:
		return "wallet balance is less than the requested amount"
	case CodePaymentVerificationFailed:
		return "the payment could not be verified on-chain"
	case CodeTransactionBroadcastFail:
		return "the transaction could not be submitted or confirmed"
	case CodeInvalidPaymentRequest:
		return "the payment request or authorization is malformed"
	case CodePaymentLimitExceeded:
		return "payment exceeds the configured spending limit"
	case CodeMaxRetriesExceeded:
		return "the payer exhausted its retry budget"
	case CodeInsufficientPayment:
		return "authorized amount is less than the required amount"
	case CodePaymentAddressMismatch:
		return "authorization names a different payment address than required"
	case CodeTokenMintMismatch:
		return "authorization names a different token mint than required"
	case CodeNetworkMismatch:
		return "authorization names a different network than required"
	case CodeInternalError:
		return "an internal error occurred while processing the request"
	default:
		return fmt.Sprintf("x402 error: %s", code)
	}
}
