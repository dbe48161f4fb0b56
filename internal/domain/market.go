package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Field length caps for market metadata.
const (
	MaxQuestionLen         = 128
	MaxDescriptionLen      = 200
	MaxCategoryLen         = 32
	MaxResolutionSourceLen = 64
)

// Lifecycle timing constants, in seconds of Unix time.
const (
	// MinMarketDuration is the minimum gap between creation and expiry.
	MinMarketDuration int64 = 86400 // 24h
	// LockBeforeExpiry is how long before expiry trading halts.
	LockBeforeExpiry int64 = 43200 // 12h
	// ResolutionGracePeriod is the window after expiry during which only the
	// market authority may resolve. After it, resolution is permissionless.
	ResolutionGracePeriod int64 = 86400 // 24h
)

// MaxFeeBps caps the platform fee at 10%.
const MaxFeeBps uint16 = 1000

// MarketStatus is the stored lifecycle state of a market.
type MarketStatus uint8

const (
	StatusActive MarketStatus = iota
	// StatusLocked is defined in the data model but never stored: locking is
	// derived from LockTime, not an explicit transition. Retained for future
	// explicit-lock support.
	StatusLocked
	StatusResolved
	StatusCancelled
)

// String returns the lowercase name of the status for logs and JSON.
func (s MarketStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusLocked:
		return "locked"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome identifies one of the two sides of a binary market.
type Outcome uint8

const (
	Yes Outcome = iota
	No
)

// OutcomeOf maps a boolean resolution result to its Outcome tag.
func OutcomeOf(yes bool) Outcome {
	if yes {
		return Yes
	}
	return No
}

// String returns "yes" or "no".
func (o Outcome) String() string {
	if o == Yes {
		return "yes"
	}
	return "no"
}

// Opposite returns the other side of the market.
func (o Outcome) Opposite() Outcome {
	if o == Yes {
		return No
	}
	return Yes
}

// ResolutionOperator is the comparison applied between the oracle price and
// the stored threshold when resolving an oracle-mode market.
type ResolutionOperator uint8

const (
	OpGTE ResolutionOperator = iota // price >= threshold
	OpLTE                           // price <= threshold
	OpEQ                            // price == threshold
)

// Valid reports whether the operator is one of the three supported values.
func (op ResolutionOperator) Valid() bool {
	return op <= OpEQ
}

// String returns the operator symbol.
func (op ResolutionOperator) String() string {
	switch op {
	case OpGTE:
		return ">="
	case OpLTE:
		return "<="
	case OpEQ:
		return "=="
	default:
		return "?"
	}
}

// Market is the durable record of one prediction market: its AMM reserves,
// timestamps, resolution parameters, and lifecycle status. Reserve and
// collateral amounts are integers in the collateral's base unit (6 decimals).
type Market struct {
	ID               uint64
	Authority        common.Address
	Question         string
	Description      string
	Category         string
	ResolutionSource string

	CollateralMint string
	YesMint        string
	NoMint         string
	Vault          string

	YesAmount      uint64 // AMM reserve, > 0 while Active
	NoAmount       uint64 // AMM reserve, > 0 while Active
	TotalLiquidity uint64 // net collateral held by the vault
	Volume         uint64 // cumulative gross trade size

	// ResolutionValue, when set, selects oracle resolution: the oracle price
	// is normalized to 6-decimal fixed point and compared against this
	// threshold with ResolutionOperator. When nil the market resolves
	// manually.
	ResolutionValue    *uint64
	ResolutionOperator ResolutionOperator
	OracleFeed         string // price feed id, required for oracle markets

	CreatedAt  int64
	ExpiresAt  int64
	LockTime   int64 // ExpiresAt - LockBeforeExpiry
	ResolvedAt *int64
	Outcome    *Outcome

	Status MarketStatus
	FeeBps uint16 // snapshot of the platform fee at creation
}

// OracleResolved reports whether the market resolves from a price feed.
func (m *Market) OracleResolved() bool {
	return m.ResolutionValue != nil
}

// TradingOpen reports whether trading is permitted at the given time:
// status Active and before the lock time.
func (m *Market) TradingOpen(now int64) bool {
	return m.Status == StatusActive && now < m.LockTime
}

// Expired reports whether the market has passed its expiry time.
func (m *Market) Expired(now int64) bool {
	return now >= m.ExpiresAt
}

// GraceDeadline returns the end of the authority-only resolution window.
func (m *Market) GraceDeadline() int64 {
	return m.ExpiresAt + ResolutionGracePeriod
}

// WithinGrace reports whether now falls in the authority-only window
// [ExpiresAt, ExpiresAt+ResolutionGracePeriod).
func (m *Market) WithinGrace(now int64) bool {
	return now < m.GraceDeadline()
}

// Reserves returns the (input, output) reserve pair for buying the given
// outcome: collateral enters against the opposite reserve and claim tokens
// leave the same-side reserve.
func (m *Market) Reserves(o Outcome) (input, output uint64) {
	if o == Yes {
		return m.NoAmount, m.YesAmount
	}
	return m.YesAmount, m.NoAmount
}

// SetReserves writes back a reserve pair in the same orientation that
// Reserves returned for the given outcome.
func (m *Market) SetReserves(o Outcome, input, output uint64) {
	if o == Yes {
		m.NoAmount, m.YesAmount = input, output
		return
	}
	m.YesAmount, m.NoAmount = input, output
}

// Mint returns the claim-token mint id for the given outcome.
func (m *Market) Mint(o Outcome) string {
	if o == Yes {
		return m.YesMint
	}
	return m.NoMint
}

// TimeToExpiry is a convenience for logs.
func (m *Market) TimeToExpiry(now int64) time.Duration {
	return time.Duration(m.ExpiresAt-now) * time.Second
}
