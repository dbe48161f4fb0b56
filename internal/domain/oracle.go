package domain

import "context"

// Oracle validation thresholds.
const (
	// OracleMaxStaleness is the maximum age of a usable price, in seconds.
	OracleMaxStaleness int64 = 300
	// OracleMaxConfBps caps the confidence interval at 5% of |price|.
	OracleMaxConfBps uint64 = 500
)

// PriceSnapshot is one observation from an external price feed. Price is a
// signed integer scaled by 10^Expo; Conf is the confidence interval in the
// same scale.
type PriceSnapshot struct {
	FeedID      string
	Price       int64
	Conf        uint64
	Expo        int32
	PublishTime int64
}

// Age returns the snapshot's age in seconds at the given time.
func (s PriceSnapshot) Age(now int64) int64 {
	return now - s.PublishTime
}

// PriceSource yields the latest snapshot for a feed id. It is supplied to the
// engine as a capability so resolution logic never fetches prices implicitly
// and tests can inject fixed snapshots.
type PriceSource interface {
	Latest(ctx context.Context, feedID string) (PriceSnapshot, error)
}

// PriceSourceFunc adapts a function to the PriceSource interface.
type PriceSourceFunc func(ctx context.Context, feedID string) (PriceSnapshot, error)

// Latest implements PriceSource.
func (f PriceSourceFunc) Latest(ctx context.Context, feedID string) (PriceSnapshot, error) {
	return f(ctx, feedID)
}
