package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EventType names each operation's emitted event.
type EventType string

const (
	EventPlatformInitialized EventType = "platform_initialized"
	EventMarketCreated       EventType = "market_created"
	EventOutcomePurchased    EventType = "outcome_purchased"
	EventOutcomeSold         EventType = "outcome_sold"
	EventMarketResolved      EventType = "market_resolved"
	EventMarketCancelled     EventType = "market_cancelled"
	EventWinningsRedeemed    EventType = "winnings_redeemed"
	EventCancelledRedeemed   EventType = "cancelled_redeemed"
)

// Event is the envelope appended to the event log for every committed
// operation. Events exist for off-chain indexing and notification; they are
// not consistency-critical state.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	MarketID  uint64    `json:"market_id"`
	At        int64     `json:"at"` // Unix seconds
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

// NewEvent builds an envelope with a fresh UUID.
func NewEvent(typ EventType, marketID uint64, at int64, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		MarketID:  marketID,
		At:        at,
		CreatedAt: time.Unix(at, 0).UTC(),
		Data:      data,
	}
}

// PlatformInitialized records platform creation.
type PlatformInitialized struct {
	Authority common.Address `json:"authority"`
	FeeBps    uint16         `json:"fee_bps"`
	Treasury  string         `json:"treasury"`
}

// MarketCreated records a new market.
type MarketCreated struct {
	MarketID         uint64 `json:"market_id"`
	Question         string `json:"question"`
	ExpiresAt        int64  `json:"expires_at"`
	InitialLiquidity uint64 `json:"initial_liquidity"`
}

// OutcomePurchased records a buy trade.
type OutcomePurchased struct {
	MarketID  uint64         `json:"market_id"`
	User      common.Address `json:"user"`
	Outcome   string         `json:"outcome"`
	AmountIn  uint64         `json:"amount_in"`
	TokensOut uint64         `json:"tokens_out"`
	Fee       uint64         `json:"fee"`
}

// OutcomeSold records a sell trade.
type OutcomeSold struct {
	MarketID      uint64         `json:"market_id"`
	User          common.Address `json:"user"`
	Outcome       string         `json:"outcome"`
	TokensIn      uint64         `json:"tokens_in"`
	CollateralOut uint64         `json:"collateral_out"`
	Fee           uint64         `json:"fee"`
}

// MarketResolved records a resolution.
type MarketResolved struct {
	MarketID   uint64 `json:"market_id"`
	Outcome    bool   `json:"outcome"`
	ResolvedAt int64  `json:"resolved_at"`
}

// MarketCancelled records a cancellation.
type MarketCancelled struct {
	MarketID uint64 `json:"market_id"`
}

// WinningsRedeemed records a winner payout.
type WinningsRedeemed struct {
	MarketID uint64         `json:"market_id"`
	User     common.Address `json:"user"`
	Payout   uint64         `json:"payout"`
}

// CancelledRedeemed records a cancellation refund.
type CancelledRedeemed struct {
	MarketID uint64         `json:"market_id"`
	User     common.Address `json:"user"`
	Refund   uint64         `json:"refund"`
}
