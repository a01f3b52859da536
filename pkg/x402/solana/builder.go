package solana

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402kit/x402/pkg/x402"
)

// BuildPaymentTransaction assembles the payer's own transfer transaction per
// buildPaymentTransaction's 7-step algorithm. Unlike this package's earlier
// gasless design, the payer is always the transaction's fee payer — there is
// no server wallet in this path.
func (a *Adapter) BuildPaymentTransaction(ctx context.Context, req *x402.PaymentRequest, amount string, payer solana.PublicKey) (*solana.Transaction, error) {
	mint, err := solana.PublicKeyFromBase58(req.AssetAddress)
	if err != nil {
		return nil, x402.NewError(x402.CodeTokenMintMismatch, fmt.Errorf("invalid asset_address: %w", err))
	}
	recipientOwner, err := solana.PublicKeyFromBase58(req.PaymentAddress)
	if err != nil {
		return nil, x402.NewError(x402.CodePaymentAddressMismatch, fmt.Errorf("invalid payment_address: %w", err))
	}

	// 1. Derive payer ATA.
	payerATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, fmt.Errorf("x402 solana: derive payer ATA: %w", err)
	}

	// 2. Derive recipient ATA.
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipientOwner, mint)
	if err != nil {
		return nil, fmt.Errorf("x402 solana: derive recipient ATA: %w", err)
	}

	// 3. Fetch recent blockhash.
	blockhashResult, err := a.callRPC("GetLatestBlockhash", func() (interface{}, error) {
		return a.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	})
	if err != nil {
		return nil, x402.NewError(x402.CodeTransactionBroadcastFail, fmt.Errorf("fetch blockhash: %w", err))
	}
	blockhash := blockhashResult.(*rpc.GetLatestBlockhashResult).Value.Blockhash

	instructions := make([]solana.Instruction, 0, 4)

	// 4. If the payer's own ATA does not exist yet, prepend a
	// create-associated-token-account instruction for it too — a wallet
	// paying with a token for the first time may not have one.
	payerATAExists, err := a.tokenAccountExists(ctx, payerATA)
	if err != nil {
		return nil, x402.NewError(x402.CodeTransactionBroadcastFail, fmt.Errorf("check payer ATA: %w", err))
	}
	if !payerATAExists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(payer, payer, mint).Build(),
		)
	}

	// If recipient ATA does not exist, prepend a create-associated-token-account
	// instruction paid by the payer.
	exists, err := a.tokenAccountExists(ctx, recipientATA)
	if err != nil {
		return nil, x402.NewError(x402.CodeTransactionBroadcastFail, fmt.Errorf("check recipient ATA: %w", err))
	}
	if !exists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(payer, recipientOwner, mint).Build(),
		)
	}

	// 5. Fetch mint decimals; convert amount to smallestUnit exactly (amounts
	// with more fractional digits than decimals are rejected, not truncated).
	decimals, err := a.mintDecimals(ctx, mint)
	if err != nil {
		return nil, x402.NewError(x402.CodeTokenMintMismatch, fmt.Errorf("fetch mint decimals: %w", err))
	}
	smallestUnit, err := ToSmallestUnit(amount, decimals)
	if err != nil {
		return nil, x402.NewError(x402.CodeInvalidPaymentRequest, fmt.Errorf("convert amount: %w", err))
	}
	if !smallestUnit.IsUint64() {
		return nil, x402.NewError(x402.CodeInvalidPaymentRequest, fmt.Errorf("amount %s overflows a u64 transfer instruction", amount))
	}

	// 6. Append a transfer-checked instruction (payerATA -> recipientATA).
	instructions = append(instructions,
		token.NewTransferCheckedInstruction(
			smallestUnit.Uint64(),
			decimals,
			payerATA,
			mint,
			recipientATA,
			payer,
			[]solana.PublicKey{},
		).Build(),
	)

	// 7. Assemble with payer as fee payer.
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, x402.NewError(x402.CodeTransactionBroadcastFail, fmt.Errorf("assemble transaction: %w", err))
	}
	return tx, nil
}

// mintDecimals reads a token mint's decimals from chain state; never hard-coded.
func (a *Adapter) mintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	result, err := a.callRPC("GetAccountInfo", func() (interface{}, error) {
		return a.rpcClient.GetAccountInfo(ctx, mint)
	})
	if err != nil {
		return 0, err
	}
	info := result.(*rpc.GetAccountInfoResult)
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("mint account %s not found", mint.String())
	}
	var mintState token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&mintState); err != nil {
		return 0, fmt.Errorf("decode mint account: %w", err)
	}
	return mintState.Decimals, nil
}

// Signer abstracts the payer's key material so BuildPaymentTransaction's
// output can be signed by either a local keypair or a remote wallet/HSM
// without this package depending on either concretely.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// SignAndSend signs tx with signer and submits it, reporting
// TRANSACTION_BROADCAST_FAILED on submission failure per §4.3.
func (a *Adapter) SignAndSend(ctx context.Context, tx *solana.Transaction, signer Signer) (solana.Signature, error) {
	if err := signer.SignTransaction(tx); err != nil {
		return solana.Signature{}, x402.NewError(x402.CodeTransactionBroadcastFail, fmt.Errorf("sign transaction: %w", err))
	}

	result, err := a.callRPC("SendTransaction", func() (interface{}, error) {
		return a.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
	})
	if err != nil && !isAlreadyProcessedError(err) {
		return solana.Signature{}, x402.NewError(x402.CodeTransactionBroadcastFail, err)
	}

	var sig solana.Signature
	if result != nil {
		sig = result.(solana.Signature)
	}

	if err := a.awaitConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		return solana.Signature{}, x402.NewError(x402.CodeTransactionBroadcastFail, err)
	}
	return sig, nil
}
