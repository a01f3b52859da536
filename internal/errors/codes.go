package errors

import "github.com/x402kit/x402/pkg/x402"

// ErrorCode is kept as an alias, not a fresh type, so this package's HTTP
// response helpers can be handed any x402.Code value directly instead of
// duplicating the closed taxonomy pkg/x402 already owns.
type ErrorCode = x402.Code
