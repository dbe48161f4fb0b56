package domain

import "errors"

// Validation errors: rejected before any state mutation.
var (
	ErrFeeTooHigh              = errors.New("fee exceeds maximum allowed")
	ErrQuestionTooLong         = errors.New("question exceeds maximum length")
	ErrDescriptionTooLong      = errors.New("description exceeds maximum length")
	ErrCategoryTooLong         = errors.New("category exceeds maximum length")
	ErrResolutionSourceTooLong = errors.New("resolution source exceeds maximum length")
	ErrInvalidOperator         = errors.New("invalid resolution operator")
	ErrZeroAmount              = errors.New("amount must be greater than zero")
	ErrExpiryTooSoon           = errors.New("market expiry too soon (minimum 24 hours)")
	ErrOutcomeRequired         = errors.New("outcome required for manually resolved market")
)

// Arithmetic errors abort the whole operation with no partial effect.
var ErrMathOverflow = errors.New("math overflow")

// State-precondition errors.
var (
	ErrMarketNotActive    = errors.New("market is not active")
	ErrMarketLocked       = errors.New("market is locked for trading")
	ErrMarketNotExpired   = errors.New("market has not expired yet")
	ErrMarketNotResolved  = errors.New("market is not resolved")
	ErrMarketNotCancelled = errors.New("market is not cancelled")
	ErrAlreadyResolved    = errors.New("market is already resolved")
)

// Authorization errors.
var ErrUnauthorized = errors.New("unauthorized")

// Oracle errors: resolution attempt rejected, market remains Active for retry.
var (
	ErrOracleRequired         = errors.New("oracle price required for oracle-resolved market")
	ErrInvalidOracle          = errors.New("invalid oracle account")
	ErrStalePriceData         = errors.New("oracle price data is stale")
	ErrPriceConfidenceTooWide = errors.New("oracle price confidence interval too wide")
)

// Economic errors: caller may retry with adjusted parameters.
var (
	ErrSlippageExceeded = errors.New("slippage tolerance exceeded")
	ErrNoWinnings       = errors.New("no winnings to redeem")
)

// Infrastructure errors shared by store and cache adapters.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
	ErrRateLimited   = errors.New("rate limited")
)

// InsufficientBalance is returned by ledger adapters when a transfer or burn
// exceeds the account balance.
var ErrInsufficientBalance = errors.New("insufficient token balance")
