package domain

import "github.com/ethereum/go-ethereum/common"

// Platform is the process-wide singleton record: the platform authority, the
// market id sequence, the running volume aggregate, and the fee policy copied
// into each market at creation. There is exactly one row, created by
// InitializePlatform and never destroyed.
type Platform struct {
	Authority   common.Address `json:"authority"`
	MarketCount uint64         `json:"market_count"` // next market id
	TotalVolume uint64         `json:"total_volume"` // cumulative gross volume across all markets
	FeeBps      uint16         `json:"fee_bps"`      // 0..MaxFeeBps
	Treasury    string         `json:"treasury"`     // ledger account receiving trade fees
}
