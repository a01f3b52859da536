package solana

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402kit/x402/pkg/x402"
)

// transferRequirement is the Adapter's internal description of the transfer a
// signed transaction must contain to satisfy a PaymentRequest. It is deliberately
// local to this package rather than a field on x402.PaymentRequest: the wire
// model only ever carries the owner wallet address, never a pre-resolved token
// account, so the adapter resolves the associated token account itself.
type transferRequirement struct {
	RecipientOwner string
	TokenMint      string
	TokenDecimals  uint8
	MinAmount      *big.Int
}

// resolveTokenAccount derives the associated token account for the recipient owner.
func resolveTokenAccount(req transferRequirement) (solana.PublicKey, error) {
	owner, err := solana.PublicKeyFromBase58(req.RecipientOwner)
	if err != nil {
		return solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, fmt.Errorf("invalid recipient owner: %w", err))
	}
	mint, err := solana.PublicKeyFromBase58(req.TokenMint)
	if err != nil {
		return solana.PublicKey{}, x402.NewVerificationError(x402.CodeTokenMintMismatch, fmt.Errorf("invalid token mint: %w", err))
	}
	account, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
	}
	return account, nil
}

// validateTransferInstructionAndExtractAuthority checks that a transaction
// contains a TransferChecked (or legacy Transfer) instruction moving TokenMint
// into the recipient's associated token account, and returns the transfer
// amount plus the signing wallet (the payer). It does not compare the amount
// with MinAmount; VerifySignedTransaction does that with the returned amount.
func validateTransferInstructionAndExtractAuthority(tx *solana.Transaction, req transferRequirement) (*big.Int, solana.PublicKey, error) {
	expectedAccount, err := resolveTokenAccount(req)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	mintKey, err := solana.PublicKeyFromBase58(req.TokenMint)
	if err != nil {
		return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodeTokenMintMismatch, err)
	}

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			continue
		}
		programID := tx.Message.AccountKeys[inst.ProgramIDIndex]
		if !programID.Equals(solana.TokenProgramID) {
			continue
		}
		accounts, err := inst.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
		}
		decoded, err := token.DecodeInstruction(accounts, []byte(inst.Data))
		if err != nil {
			return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, err)
		}
		switch ins := decoded.Impl.(type) {
		case *token.Transfer:
			dest := ins.GetDestinationAccount().PublicKey
			if !dest.Equals(expectedAccount) {
				continue
			}
			owner := ins.GetOwnerAccount().PublicKey
			if ins.Amount == nil {
				return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, errors.New("transfer instruction missing amount"))
			}
			return new(big.Int).SetUint64(*ins.Amount), owner, nil
		case *token.TransferChecked:
			dest := ins.GetDestinationAccount().PublicKey
			if !dest.Equals(expectedAccount) {
				continue
			}
			if acct := ins.GetMintAccount().PublicKey; !acct.Equals(mintKey) {
				continue
			}
			owner := ins.GetOwnerAccount().PublicKey
			if ins.Decimals == nil || *ins.Decimals != req.TokenDecimals {
				return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, fmt.Errorf("transfer decimals mismatch %v != %d", ins.Decimals, req.TokenDecimals))
			}
			if ins.Amount == nil {
				return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, errors.New("transferChecked amount missing"))
			}
			return new(big.Int).SetUint64(*ins.Amount), owner, nil
		default:
			continue
		}
	}

	return nil, solana.PublicKey{}, x402.NewVerificationError(x402.CodePaymentVerificationFailed, fmt.Errorf("token transfer to %s not found in transaction", expectedAccount.String()))
}

// extractTokenTransfer extracts the transfer amount (smallest units) from a
// confirmed, parsed transaction, used by the post-broadcast verify path where
// only the signature is known and the transaction must be re-fetched parsed.
func extractTokenTransfer(tx *rpc.GetParsedTransactionResult, destination, mint solana.PublicKey, minAmount *big.Int) (*big.Int, error) {
	if tx.Transaction == nil || tx.Meta == nil {
		return nil, errors.New("x402 solana: parsed transaction incomplete")
	}

	if amount, ok := scanParsedInstructions(tx.Transaction.Message.Instructions, tx.Meta, &tx.Transaction.Message, destination, mint, minAmount); ok {
		return amount, nil
	}
	for _, inner := range tx.Meta.InnerInstructions {
		if amount, ok := scanParsedInstructions(inner.Instructions, tx.Meta, &tx.Transaction.Message, destination, mint, minAmount); ok {
			return amount, nil
		}
	}
	return nil, fmt.Errorf("x402 solana: no transfer to %s found", destination.String())
}

// scanParsedInstructions scans instruction list for a matching transfer.
func scanParsedInstructions(instructions []*rpc.ParsedInstruction, meta *rpc.ParsedTransactionMeta, message *rpc.ParsedMessage, destination, mint solana.PublicKey, minAmount *big.Int) (*big.Int, bool) {
	for _, inst := range instructions {
		amount, ok := parseTokenTransfer(inst, meta, message, destination, mint, minAmount)
		if ok {
			return amount, true
		}
	}
	return nil, false
}

// parseTokenTransfer parses a single parsed instruction for a token transfer.
func parseTokenTransfer(inst *rpc.ParsedInstruction, meta *rpc.ParsedTransactionMeta, message *rpc.ParsedMessage, destination, mint solana.PublicKey, minAmount *big.Int) (*big.Int, bool) {
	if inst == nil || inst.Parsed == nil {
		return nil, false
	}
	if inst.Program != "spl-token" {
		return nil, false
	}

	info, instructionType, err := extractInstructionInfo(inst)
	if err != nil {
		return nil, false
	}
	if instructionType != "transfer" && instructionType != "transferChecked" {
		return nil, false
	}

	destStr := stringValue(info["destination"])
	if destStr == "" {
		return nil, false
	}
	destKey, err := solana.PublicKeyFromBase58(destStr)
	if err != nil || !destKey.Equals(destination) {
		return nil, false
	}

	if !postBalanceMatches(meta, message, destination, mint) {
		return nil, false
	}

	amount, err := parseAmountSmallestUnit(info)
	if err != nil {
		return nil, false
	}
	if amount.Cmp(minAmount) < 0 {
		return nil, false
	}

	mintHint := stringValue(info["mint"])
	if mintHint != "" {
		hintKey, err := solana.PublicKeyFromBase58(mintHint)
		if err != nil || !hintKey.Equals(mint) {
			return nil, false
		}
	}

	return amount, true
}

// postBalanceMatches checks if the destination account has a post-balance for the expected mint.
func postBalanceMatches(meta *rpc.ParsedTransactionMeta, message *rpc.ParsedMessage, destination, mint solana.PublicKey) bool {
	if meta == nil || message == nil {
		return false
	}
	for _, balance := range meta.PostTokenBalances {
		idx := int(balance.AccountIndex)
		if idx >= len(message.AccountKeys) {
			continue
		}
		account := message.AccountKeys[idx].PublicKey
		if account.Equals(destination) && balance.Mint.Equals(mint) {
			return true
		}
	}
	return false
}

// findParsedPayer extracts the first signer from a parsed transaction.
func findParsedPayer(tx *rpc.ParsedTransaction) string {
	if tx == nil {
		return ""
	}
	for _, account := range tx.Message.AccountKeys {
		if account.Signer {
			return account.PublicKey.String()
		}
	}
	return ""
}
