package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// InitializePlatform creates the singleton platform record with the given fee
// policy. The caller becomes the platform authority; a treasury ledger
// account owned by the authority is created to receive trade fees. Calling it
// a second time fails with domain.ErrAlreadyExists.
func (e *Engine) InitializePlatform(ctx context.Context, authority common.Address, feeBps uint16) (domain.Platform, error) {
	if feeBps > domain.MaxFeeBps {
		return domain.Platform{}, domain.ErrFeeTooHigh
	}

	treasury := domain.TreasurySeed(e.collateralMint)
	p := domain.Platform{
		Authority:   authority,
		MarketCount: 0,
		TotalVolume: 0,
		FeeBps:      feeBps,
		Treasury:    treasury,
	}
	err := e.atomically(ctx, func(ctx context.Context) error {
		if err := e.ledger.CreateAccount(ctx, treasury, e.collateralMint, authority.Hex()); err != nil &&
			!errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("engine: create treasury account: %w", err)
		}
		if err := e.platform.Create(ctx, p); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return err
			}
			return fmt.Errorf("engine: create platform: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Platform{}, err
	}

	e.emit(ctx, domain.NewEvent(domain.EventPlatformInitialized, 0, e.clock.Now(), domain.PlatformInitialized{
		Authority: authority,
		FeeBps:    feeBps,
		Treasury:  treasury,
	}))

	e.logger.InfoContext(ctx, "platform initialized",
		slog.String("authority", authority.Hex()),
		slog.Int("fee_bps", int(feeBps)),
	)
	return p, nil
}
