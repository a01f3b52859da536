package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402kit/x402/internal/logger"
	"github.com/x402kit/x402/pkg/x402"
)

// Verify fetches the confirmed transaction named by txHash and checks that it
// (a) exists, (b) has no transaction error, and (c) contains a transfer of at
// least expectedAmount of expectedMint into expectedRecipient's associated
// token account. This is the full check per §4.3 — the minimal mode that
// relies on field-match at the gate alone is not implemented here.
func (a *Adapter) Verify(ctx context.Context, txHash string, expectedRecipient solana.PublicKey, expectedAmount *big.Int, expectedMint solana.PublicKey) (bool, error) {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return false, x402.NewVerificationError(x402.CodePaymentVerificationFailed, fmt.Errorf("invalid transaction hash: %w", err))
	}

	result, err := a.callRPC("GetParsedTransaction", func() (interface{}, error) {
		maxVersion := uint64(0)
		return a.rpcClient.GetParsedTransaction(ctx, sig, &rpc.GetParsedTransactionOpts{
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
	})
	if err != nil {
		if isTransactionNotFoundError(err) {
			return false, nil
		}
		return false, x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
	}
	tx := result.(*rpc.GetParsedTransactionResult)
	if tx == nil {
		return false, nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return false, nil
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(expectedRecipient, expectedMint)
	if err != nil {
		return false, x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
	}

	amount, err := extractTokenTransfer(tx, recipientATA, expectedMint, expectedAmount)
	if err != nil {
		return false, nil
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("signature", logger.TruncateAddress(txHash)).
		Str("recipient", logger.TruncateAddress(recipientATA.String())).
		Str("amount", amount.String()).
		Msg("payment.verified")

	return true, nil
}

// VerifySignedTransaction validates, broadcasts, and confirms a payer-signed
// transaction in one call, used by the gatekeeper's optional server-side
// settlement path (as opposed to verifying a transaction the payer already
// broadcast independently). It returns the transfer amount and the payer
// wallet recovered from the transfer instruction's authority.
func (a *Adapter) VerifySignedTransaction(ctx context.Context, txBase64 string, recipientOwner string, tokenMint string, tokenDecimals uint8, minAmount *big.Int) (*big.Int, solana.PublicKey, string, error) {
	if txBase64 == "" {
		return nil, solana.PublicKey{}, "", x402.NewVerificationError(x402.CodePaymentVerificationFailed, errors.New("transaction payload missing"))
	}
	tx, err := solana.TransactionFromBase64(txBase64)
	if err != nil {
		return nil, solana.PublicKey{}, "", x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
	}
	if len(tx.Message.AccountKeys) == 0 {
		return nil, solana.PublicKey{}, "", x402.NewVerificationError(x402.CodePaymentVerificationFailed, errors.New("transaction missing account keys"))
	}

	req := transferRequirement{
		RecipientOwner: recipientOwner,
		TokenMint:      tokenMint,
		TokenDecimals:  tokenDecimals,
		MinAmount:      minAmount,
	}
	amount, payer, err := validateTransferInstructionAndExtractAuthority(tx, req)
	if err != nil {
		return nil, solana.PublicKey{}, "", err
	}
	if amount.Cmp(minAmount) < 0 {
		return nil, solana.PublicKey{}, "", x402.NewVerificationError(x402.CodePaymentVerificationFailed, fmt.Errorf("amount %s below required %s", amount, minAmount))
	}

	signer := solanaTxSigner{tx: tx}
	sig, err := a.SignAndSend(ctx, tx, signer)
	if err != nil {
		return nil, solana.PublicKey{}, "", err
	}

	return amount, payer, sig.String(), nil
}

// solanaTxSigner is a no-op Signer used when a transaction arrives already
// fully signed by the payer: SignAndSend's Sign step becomes a verification
// that the existing signatures are present, not a fresh signing operation.
type solanaTxSigner struct {
	tx *solana.Transaction
}

func (s solanaTxSigner) PublicKey() solana.PublicKey {
	if len(s.tx.Message.AccountKeys) == 0 {
		return solana.PublicKey{}
	}
	return s.tx.Message.AccountKeys[0]
}

func (s solanaTxSigner) SignTransaction(tx *solana.Transaction) error {
	var zero solana.Signature
	for _, sig := range tx.Signatures {
		if sig == zero {
			return errors.New("x402 solana: transaction is missing a required signature")
		}
	}
	return nil
}
