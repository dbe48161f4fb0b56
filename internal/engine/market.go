package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// claimDecimals is the decimal precision of claim-token mints, matching the
// 6-decimal collateral unit.
const claimDecimals uint8 = 6

// CreateMarketParams are the caller-supplied fields of a new market.
type CreateMarketParams struct {
	Question         string
	Description      string
	Category         string
	ResolutionSource string

	// ResolutionValue selects oracle resolution when non-nil; it is a
	// 6-decimal fixed-point threshold compared with ResolutionOperator.
	ResolutionValue    *uint64
	ResolutionOperator domain.ResolutionOperator
	// OracleFeed is the price feed id, required when ResolutionValue is set.
	OracleFeed string

	ExpiresAt        int64
	InitialLiquidity uint64
}

// validate enforces the pre-mutation field checks.
func (p CreateMarketParams) validate() error {
	switch {
	case len(p.Question) > domain.MaxQuestionLen:
		return domain.ErrQuestionTooLong
	case len(p.Description) > domain.MaxDescriptionLen:
		return domain.ErrDescriptionTooLong
	case len(p.Category) > domain.MaxCategoryLen:
		return domain.ErrCategoryTooLong
	case len(p.ResolutionSource) > domain.MaxResolutionSourceLen:
		return domain.ErrResolutionSourceTooLong
	case !p.ResolutionOperator.Valid():
		return domain.ErrInvalidOperator
	case p.InitialLiquidity == 0:
		return domain.ErrZeroAmount
	case p.ResolutionValue != nil && p.OracleFeed == "":
		return domain.ErrOracleRequired
	}
	return nil
}

// CreateMarket creates a market atomically with its two claim-token mints and
// its collateral vault, seeds the AMM with the authority's initial liquidity
// split evenly across both reserves, and assigns the next market id from the
// platform sequence. Only the platform authority may create markets.
func (e *Engine) CreateMarket(ctx context.Context, caller common.Address, params CreateMarketParams) (domain.Market, error) {
	if err := params.validate(); err != nil {
		return domain.Market{}, err
	}

	var (
		m   domain.Market
		now int64
	)
	err := e.atomically(ctx, func(ctx context.Context) error {
		platform, err := e.platform.Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load platform: %w", err)
		}
		if caller != platform.Authority {
			return domain.ErrUnauthorized
		}

		now = e.clock.Now()
		minExpiry, err := addI64(now, domain.MinMarketDuration)
		if err != nil {
			return err
		}
		if params.ExpiresAt < minExpiry {
			return domain.ErrExpiryTooSoon
		}
		lockTime := params.ExpiresAt - domain.LockBeforeExpiry

		half := params.InitialLiquidity / 2
		if half == 0 {
			return domain.ErrZeroAmount
		}

		marketID := platform.MarketCount
		platform.MarketCount, err = addU64(platform.MarketCount, 1)
		if err != nil {
			return err
		}

		yesMint := domain.YesMintSeed(marketID)
		noMint := domain.NoMintSeed(marketID)
		vault := domain.VaultSeed(marketID)
		marketAuthority := domain.MarketSeed(marketID)

		// Create the claim mints and the vault, then fund the vault from the
		// authority's collateral account.
		if err := e.ledger.CreateMint(ctx, yesMint, claimDecimals, marketAuthority); err != nil {
			return fmt.Errorf("engine: create yes mint: %w", err)
		}
		if err := e.ledger.CreateMint(ctx, noMint, claimDecimals, marketAuthority); err != nil {
			return fmt.Errorf("engine: create no mint: %w", err)
		}
		if err := e.ledger.CreateAccount(ctx, vault, e.collateralMint, marketAuthority); err != nil {
			return fmt.Errorf("engine: create vault: %w", err)
		}
		authorityCollateral := domain.UserTokenAccount(e.collateralMint, caller)
		if err := e.ledger.Transfer(ctx, authorityCollateral, vault, params.InitialLiquidity); err != nil {
			return fmt.Errorf("engine: fund vault: %w", err)
		}

		m = domain.Market{
			ID:                 marketID,
			Authority:          caller,
			Question:           params.Question,
			Description:        params.Description,
			Category:           params.Category,
			ResolutionSource:   params.ResolutionSource,
			CollateralMint:     e.collateralMint,
			YesMint:            yesMint,
			NoMint:             noMint,
			Vault:              vault,
			YesAmount:          half,
			NoAmount:           half,
			TotalLiquidity:     params.InitialLiquidity,
			Volume:             0,
			ResolutionValue:    params.ResolutionValue,
			ResolutionOperator: params.ResolutionOperator,
			OracleFeed:         params.OracleFeed,
			CreatedAt:          now,
			ExpiresAt:          params.ExpiresAt,
			LockTime:           lockTime,
			Status:             domain.StatusActive,
			FeeBps:             platform.FeeBps,
		}

		if err := e.markets.Create(ctx, m); err != nil {
			return fmt.Errorf("engine: create market %d: %w", marketID, err)
		}
		if err := e.platform.Update(ctx, platform); err != nil {
			return fmt.Errorf("engine: bump market count: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}

	e.refreshCache(ctx, m)
	e.emit(ctx, domain.NewEvent(domain.EventMarketCreated, m.ID, now, domain.MarketCreated{
		MarketID:         m.ID,
		Question:         params.Question,
		ExpiresAt:        params.ExpiresAt,
		InitialLiquidity: params.InitialLiquidity,
	}))

	e.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", m.ID),
		slog.String("question", params.Question),
		slog.Int64("expires_at", params.ExpiresAt),
		slog.Uint64("initial_liquidity", params.InitialLiquidity),
		slog.Bool("oracle", m.OracleResolved()),
	)
	return m, nil
}

// CancelMarket moves an Active market to Cancelled. Only the market authority
// may cancel, only while no outcome has been set; cancellation and resolution
// are mutually exclusive.
func (e *Engine) CancelMarket(ctx context.Context, caller common.Address, marketID uint64) error {
	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return err
	}
	defer unlock()

	m, err := e.markets.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("engine: load market %d: %w", marketID, err)
	}
	if caller != m.Authority {
		return domain.ErrUnauthorized
	}
	if m.Status != domain.StatusActive {
		return domain.ErrMarketNotActive
	}
	if m.Outcome != nil {
		return domain.ErrAlreadyResolved
	}

	m.Status = domain.StatusCancelled
	if err := e.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("engine: cancel market %d: %w", marketID, err)
	}

	e.refreshCache(ctx, m)
	e.emit(ctx, domain.NewEvent(domain.EventMarketCancelled, marketID, e.clock.Now(), domain.MarketCancelled{
		MarketID: marketID,
	}))

	e.logger.InfoContext(ctx, "market cancelled", slog.Uint64("market_id", marketID))
	return nil
}

// addI64 is a checked signed 64-bit addition for timestamps.
func addI64(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, domain.ErrMathOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}
