package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/amm"
	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// BuyResult reports the committed effect of a buy.
type BuyResult struct {
	TokensOut uint64
	Fee       uint64
}

// SellResult reports the committed effect of a sell.
type SellResult struct {
	CollateralOut uint64
	Fee           uint64
}

// BuyOutcome spends amount collateral on claim tokens of the given outcome.
// The fee is deducted up front and sent to the treasury; the remainder is
// swapped against the AMM. Fails with domain.ErrSlippageExceeded when the
// computed output is below minTokensOut: slippage bounds are how a caller
// tolerates trades that landed before theirs.
func (e *Engine) BuyOutcome(ctx context.Context, user common.Address, marketID uint64, amount uint64, outcome domain.Outcome, minTokensOut uint64) (BuyResult, error) {
	if amount == 0 {
		return BuyResult{}, domain.ErrZeroAmount
	}

	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return BuyResult{}, err
	}
	defer unlock()

	var (
		m         domain.Market
		now       int64
		fee       uint64
		tokensOut uint64
	)
	err = e.atomically(ctx, func(ctx context.Context) error {
		var err error
		m, err = e.markets.Get(ctx, marketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}

		now = e.clock.Now()
		if m.Status != domain.StatusActive {
			return domain.ErrMarketNotActive
		}
		if now >= m.LockTime {
			return domain.ErrMarketLocked
		}

		fee, err = amm.Fee(amount, m.FeeBps)
		if err != nil {
			return err
		}
		inputAfterFee := amount - fee
		if inputAfterFee == 0 {
			return domain.ErrZeroAmount
		}

		inputReserve, outputReserve := m.Reserves(outcome)
		var newInput, newOutput uint64
		tokensOut, newInput, newOutput, err = amm.Quote(inputReserve, outputReserve, inputAfterFee)
		if err != nil {
			return err
		}
		if tokensOut == 0 {
			return domain.ErrZeroAmount
		}
		if tokensOut < minTokensOut {
			return domain.ErrSlippageExceeded
		}

		// Compute every post-state value before touching anything so
		// arithmetic failures cannot leave partial effects.
		newLiquidity, err := addU64(m.TotalLiquidity, inputAfterFee)
		if err != nil {
			return err
		}
		newVolume, err := addU64(m.Volume, amount)
		if err != nil {
			return err
		}

		platform, err := e.platform.Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load platform: %w", err)
		}
		platform.TotalVolume, err = addU64(platform.TotalVolume, amount)
		if err != nil {
			return err
		}

		pos, err := e.loadOrNewPosition(ctx, marketID, user)
		if err != nil {
			return err
		}
		pos.TotalDeposited, err = addU64(pos.TotalDeposited, amount)
		if err != nil {
			return err
		}

		// Ledger moves: net input to the vault, fee straight to the treasury,
		// claim tokens minted to the user.
		userCollateral := domain.UserTokenAccount(e.collateralMint, user)
		if err := e.ledger.Transfer(ctx, userCollateral, m.Vault, inputAfterFee); err != nil {
			return fmt.Errorf("engine: collateral to vault: %w", err)
		}
		if fee > 0 {
			if err := e.ledger.Transfer(ctx, userCollateral, platform.Treasury, fee); err != nil {
				return fmt.Errorf("engine: fee to treasury: %w", err)
			}
		}
		userTokens := domain.UserTokenAccount(m.Mint(outcome), user)
		if err := e.ledger.CreateAccount(ctx, userTokens, m.Mint(outcome), user.Hex()); err != nil &&
			!errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("engine: create token account: %w", err)
		}
		if err := e.ledger.MintTo(ctx, m.Mint(outcome), userTokens, tokensOut); err != nil {
			return fmt.Errorf("engine: mint claim tokens: %w", err)
		}

		m.SetReserves(outcome, newInput, newOutput)
		m.TotalLiquidity = newLiquidity
		m.Volume = newVolume
		pos.AddTokens(outcome, tokensOut)

		if err := e.markets.Update(ctx, m); err != nil {
			return fmt.Errorf("engine: update market %d: %w", marketID, err)
		}
		if err := e.platform.Update(ctx, platform); err != nil {
			return fmt.Errorf("engine: update platform volume: %w", err)
		}
		if err := e.positions.Upsert(ctx, pos); err != nil {
			return fmt.Errorf("engine: upsert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return BuyResult{}, err
	}

	e.refreshCache(ctx, m)
	e.emit(ctx, domain.NewEvent(domain.EventOutcomePurchased, marketID, now, domain.OutcomePurchased{
		MarketID:  marketID,
		User:      user,
		Outcome:   outcome.String(),
		AmountIn:  amount,
		TokensOut: tokensOut,
		Fee:       fee,
	}))

	e.logger.InfoContext(ctx, "outcome purchased",
		slog.Uint64("market_id", marketID),
		slog.String("user", user.Hex()),
		slog.String("outcome", outcome.String()),
		slog.Uint64("amount_in", amount),
		slog.Uint64("tokens_out", tokensOut),
		slog.Uint64("fee", fee),
	)
	return BuyResult{TokensOut: tokensOut, Fee: fee}, nil
}

// SellOutcome sells amount claim tokens of the given outcome back to the AMM.
// The gross payout comes off the constant-product curve; the fee is deducted
// from it and sent to the treasury, and the remainder is paid from the vault.
func (e *Engine) SellOutcome(ctx context.Context, user common.Address, marketID uint64, amount uint64, outcome domain.Outcome, minCollateralOut uint64) (SellResult, error) {
	if amount == 0 {
		return SellResult{}, domain.ErrZeroAmount
	}

	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return SellResult{}, err
	}
	defer unlock()

	var (
		m             domain.Market
		now           int64
		fee           uint64
		collateralOut uint64
	)
	err = e.atomically(ctx, func(ctx context.Context) error {
		var err error
		m, err = e.markets.Get(ctx, marketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}

		now = e.clock.Now()
		if m.Status != domain.StatusActive {
			return domain.ErrMarketNotActive
		}
		if now >= m.LockTime {
			return domain.ErrMarketLocked
		}

		// Selling pushes claim tokens into their own reserve; the orientation
		// is the mirror of a buy of the opposite outcome.
		inputReserve, outputReserve := m.Reserves(outcome.Opposite())
		grossOut, newInput, newOutput, err := amm.Quote(inputReserve, outputReserve, amount)
		if err != nil {
			return err
		}

		fee, err = amm.Fee(grossOut, m.FeeBps)
		if err != nil {
			return err
		}
		collateralOut, err = subU64(grossOut, fee)
		if err != nil {
			return err
		}
		if collateralOut == 0 {
			return domain.ErrZeroAmount
		}
		if collateralOut < minCollateralOut {
			return domain.ErrSlippageExceeded
		}

		newVolume, err := addU64(m.Volume, grossOut)
		if err != nil {
			return err
		}
		newLiquidity, err := subU64(m.TotalLiquidity, collateralOut)
		if err != nil {
			return err
		}

		platform, err := e.platform.Get(ctx)
		if err != nil {
			return fmt.Errorf("engine: load platform: %w", err)
		}
		platform.TotalVolume, err = addU64(platform.TotalVolume, grossOut)
		if err != nil {
			return err
		}

		pos, err := e.positions.Get(ctx, marketID, user)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInsufficientBalance
			}
			return fmt.Errorf("engine: load position: %w", err)
		}
		if pos.Tokens(outcome) < amount {
			return domain.ErrInsufficientBalance
		}
		pos.TotalWithdrawn, err = addU64(pos.TotalWithdrawn, collateralOut)
		if err != nil {
			return err
		}

		userTokens := domain.UserTokenAccount(m.Mint(outcome), user)
		if err := e.ledger.Burn(ctx, m.Mint(outcome), userTokens, amount); err != nil {
			return fmt.Errorf("engine: burn claim tokens: %w", err)
		}
		userCollateral := domain.UserTokenAccount(e.collateralMint, user)
		if err := e.ledger.CreateAccount(ctx, userCollateral, e.collateralMint, user.Hex()); err != nil &&
			!errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("engine: create collateral account: %w", err)
		}
		if err := e.ledger.Transfer(ctx, m.Vault, userCollateral, collateralOut); err != nil {
			return fmt.Errorf("engine: vault payout: %w", err)
		}
		if fee > 0 {
			if err := e.ledger.Transfer(ctx, m.Vault, platform.Treasury, fee); err != nil {
				return fmt.Errorf("engine: fee to treasury: %w", err)
			}
		}

		m.SetReserves(outcome.Opposite(), newInput, newOutput)
		m.Volume = newVolume
		m.TotalLiquidity = newLiquidity
		pos.SubTokens(outcome, amount)

		if err := e.markets.Update(ctx, m); err != nil {
			return fmt.Errorf("engine: update market %d: %w", marketID, err)
		}
		if err := e.platform.Update(ctx, platform); err != nil {
			return fmt.Errorf("engine: update platform volume: %w", err)
		}
		if err := e.positions.Upsert(ctx, pos); err != nil {
			return fmt.Errorf("engine: upsert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return SellResult{}, err
	}

	e.refreshCache(ctx, m)
	e.emit(ctx, domain.NewEvent(domain.EventOutcomeSold, marketID, now, domain.OutcomeSold{
		MarketID:      marketID,
		User:          user,
		Outcome:       outcome.String(),
		TokensIn:      amount,
		CollateralOut: collateralOut,
		Fee:           fee,
	}))

	e.logger.InfoContext(ctx, "outcome sold",
		slog.Uint64("market_id", marketID),
		slog.String("user", user.Hex()),
		slog.String("outcome", outcome.String()),
		slog.Uint64("tokens_in", amount),
		slog.Uint64("collateral_out", collateralOut),
		slog.Uint64("fee", fee),
	)
	return SellResult{CollateralOut: collateralOut, Fee: fee}, nil
}

// loadOrNewPosition fetches the caller's position or initializes an empty one
// on first buy.
func (e *Engine) loadOrNewPosition(ctx context.Context, marketID uint64, user common.Address) (domain.Position, error) {
	pos, err := e.positions.Get(ctx, marketID, user)
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Position{User: user, MarketID: marketID}, nil
	}
	return domain.Position{}, fmt.Errorf("engine: load position: %w", err)
}
