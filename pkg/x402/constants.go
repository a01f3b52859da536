package x402

import "time"

// Transaction confirmation timeouts and intervals
const (
	// BlockhashValidityWindow is the conservative window for Solana blockhash validity.
	// Solana blockhashes are valid for ~150 slots (~60 seconds on mainnet).
	// We use 90 seconds as a conservative estimate.
	BlockhashValidityWindow = 90 * time.Second

	// RPCPollInterval is how frequently we poll RPC for transaction status when WebSocket fails.
	RPCPollInterval = 2 * time.Second

	// DefaultConfirmationTimeout is the maximum time to wait for transaction confirmation.
	DefaultConfirmationTimeout = 2 * time.Minute

	// DefaultAccessTTL is how long verified payments remain cached.
	DefaultAccessTTL = 45 * time.Minute
)

// MinIdentifierBytes is the minimum entropy, in raw bytes before hex
// encoding, for a generated payment_id or nonce (spec step 2 requires
// >= 128 bits).
const MinIdentifierBytes = 16

// Amount comparisons in this module are performed exclusively on *big.Int
// at the asset's smallest-unit scale (see pkg/x402/solana/amount.go); unlike
// the float64+epsilon tolerance an earlier generation of this service used,
// no tolerance constant is needed here because integer comparison is exact.
