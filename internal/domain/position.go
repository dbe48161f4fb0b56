package domain

import "github.com/ethereum/go-ethereum/common"

// Position is the per-(market, user) record of outstanding claim tokens and
// lifetime deposit/withdrawal totals. It is created lazily on a user's first
// buy and never destroyed. The token counters mirror the user's actual ledger
// balances; they are bookkeeping, not an independent source of truth.
type Position struct {
	User     common.Address `json:"user"`
	MarketID uint64         `json:"market_id"`

	YesTokens uint64 `json:"yes_tokens"`
	NoTokens  uint64 `json:"no_tokens"`

	TotalDeposited uint64 `json:"total_deposited"` // monotonic, gross buy amounts
	TotalWithdrawn uint64 `json:"total_withdrawn"` // monotonic, sell payouts + redemptions
}

// Tokens returns the counter for the given outcome side.
func (p *Position) Tokens(o Outcome) uint64 {
	if o == Yes {
		return p.YesTokens
	}
	return p.NoTokens
}

// AddTokens increments the counter for the given outcome side.
func (p *Position) AddTokens(o Outcome, n uint64) {
	if o == Yes {
		p.YesTokens += n
		return
	}
	p.NoTokens += n
}

// SubTokens decrements the counter for the given outcome side.
func (p *Position) SubTokens(o Outcome, n uint64) {
	if o == Yes {
		p.YesTokens -= n
		return
	}
	p.NoTokens -= n
}
