package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// normalizedDecimals is the fixed-point scale oracle prices are normalized to
// before comparison with a market's resolution threshold.
const normalizedDecimals = 6

// ResolveMarket decides and stores a market's outcome once it has expired.
// Within the grace window after expiry only the market authority may resolve;
// afterwards any caller may, which keeps markets resolvable if the authority
// disappears. Oracle markets read the price feed and compare against the
// stored threshold; manual markets take outcomeHint. Oracle validation
// failures leave the market Active so resolution can be retried.
func (e *Engine) ResolveMarket(ctx context.Context, caller common.Address, marketID uint64, outcomeHint *bool) (bool, error) {
	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return false, err
	}
	defer unlock()

	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("engine: load market %d: %w", marketID, err)
	}

	now := e.clock.Now()
	if m.Status != domain.StatusActive {
		return false, domain.ErrMarketNotActive
	}
	if !m.Expired(now) {
		return false, domain.ErrMarketNotExpired
	}
	if m.WithinGrace(now) && caller != m.Authority {
		return false, domain.ErrUnauthorized
	}

	var outcome bool
	if m.OracleResolved() {
		outcome, err = e.resolveFromOracle(ctx, &m, now)
		if err != nil {
			return false, err
		}
	} else {
		// Manual mode. After the grace window any caller may supply the
		// outcome; the original design flags this as economically
		// exploitable but keeps it for liveness.
		if outcomeHint == nil {
			return false, domain.ErrOutcomeRequired
		}
		outcome = *outcomeHint
	}

	o := domain.OutcomeOf(outcome)
	m.Outcome = &o
	m.ResolvedAt = &now
	m.Status = domain.StatusResolved
	if err := e.markets.Update(ctx, m); err != nil {
		return false, fmt.Errorf("engine: resolve market %d: %w", marketID, err)
	}

	e.refreshCache(ctx, m)
	e.emit(ctx, domain.NewEvent(domain.EventMarketResolved, marketID, now, domain.MarketResolved{
		MarketID:   marketID,
		Outcome:    outcome,
		ResolvedAt: now,
	}))

	e.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_id", marketID),
		slog.Bool("outcome", outcome),
		slog.Bool("oracle", m.OracleResolved()),
		slog.String("resolver", caller.Hex()),
	)
	return outcome, nil
}

// resolveFromOracle fetches and validates a price snapshot, normalizes it to
// 6-decimal fixed point, and compares it against the market's threshold.
func (e *Engine) resolveFromOracle(ctx context.Context, m *domain.Market, now int64) (bool, error) {
	if e.prices == nil {
		return false, domain.ErrOracleRequired
	}

	snap, err := e.prices.Latest(ctx, m.OracleFeed)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrInvalidOracle, err)
	}
	if snap.FeedID != m.OracleFeed {
		return false, domain.ErrInvalidOracle
	}
	if snap.Age(now) > domain.OracleMaxStaleness {
		return false, domain.ErrStalePriceData
	}
	if snap.Price <= 0 {
		return false, domain.ErrInvalidOracle
	}
	// Confidence must not exceed 5% of the price: conf*10000/price <= 500.
	confBps := new(uint256.Int).Mul(uint256.NewInt(snap.Conf), uint256.NewInt(10_000))
	confBps.Div(confBps, uint256.NewInt(uint64(snap.Price)))
	if !confBps.IsUint64() || confBps.Uint64() > domain.OracleMaxConfBps {
		return false, domain.ErrPriceConfidenceTooWide
	}

	normalized, err := normalizePrice(snap.Price, snap.Expo)
	if err != nil {
		return false, err
	}

	threshold := *m.ResolutionValue
	switch m.ResolutionOperator {
	case domain.OpGTE:
		return normalized >= threshold, nil
	case domain.OpLTE:
		return normalized <= threshold, nil
	case domain.OpEQ:
		return normalized == threshold, nil
	default:
		return false, domain.ErrInvalidOperator
	}
}

// normalizePrice converts a positive raw price scaled by 10^expo into a
// 6-decimal fixed-point integer. Scaling up is overflow-checked; scaling down
// floors.
func normalizePrice(raw int64, expo int32) (uint64, error) {
	price := uint256.NewInt(uint64(raw))

	var shift int64
	if expo >= 0 {
		shift = normalizedDecimals + int64(expo)
	} else {
		shift = normalizedDecimals - int64(-expo)
	}

	if shift >= 0 {
		// 10^20 alone exceeds uint64; anything past that cannot normalize.
		if shift > 19 {
			return 0, domain.ErrMathOverflow
		}
		scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(shift)))
		price.Mul(price, scale)
		if !price.IsUint64() {
			return 0, domain.ErrMathOverflow
		}
		return price.Uint64(), nil
	}

	// A raw int64 price is below 10^19, so dividing by 10^19 or more floors
	// to zero without needing the wide division.
	if -shift > 18 {
		return 0, nil
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(-shift)))
	price.Div(price, scale)
	return price.Uint64(), nil
}
