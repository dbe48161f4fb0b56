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

// RedeemWinnings pays a holder of the winning outcome their pro-rata share of
// the vault: floor(balance * vault / winningSupply). The user's entire
// winning balance is burned, so a second call finds a zero balance and fails
// with domain.ErrNoWinnings; idempotence is balance-driven, not flag-driven.
// Losing-side tokens are left outstanding.
func (e *Engine) RedeemWinnings(ctx context.Context, user common.Address, marketID uint64) (uint64, error) {
	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var payout uint64
	err = e.atomically(ctx, func(ctx context.Context) error {
		m, err := e.markets.Get(ctx, marketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}
		if m.Status != domain.StatusResolved || m.Outcome == nil {
			return domain.ErrMarketNotResolved
		}
		winning := *m.Outcome

		userTokens := domain.UserTokenAccount(m.Mint(winning), user)
		balance, err := e.accountBalance(ctx, userTokens)
		if err != nil {
			return err
		}
		if balance == 0 {
			return domain.ErrNoWinnings
		}

		supply, err := e.ledger.Supply(ctx, m.Mint(winning))
		if err != nil {
			return fmt.Errorf("engine: winning supply: %w", err)
		}
		vaultBalance, err := e.ledger.Balance(ctx, m.Vault)
		if err != nil {
			return fmt.Errorf("engine: vault balance: %w", err)
		}

		payout, err = amm.ProRata(balance, vaultBalance, supply)
		if err != nil {
			return err
		}
		if payout == 0 {
			return domain.ErrNoWinnings
		}

		pos, err := e.loadOrNewPosition(ctx, marketID, user)
		if err != nil {
			return err
		}
		pos.TotalWithdrawn, err = addU64(pos.TotalWithdrawn, payout)
		if err != nil {
			return err
		}

		if err := e.ledger.Burn(ctx, m.Mint(winning), userTokens, balance); err != nil {
			return fmt.Errorf("engine: burn winning tokens: %w", err)
		}
		userCollateral := domain.UserTokenAccount(e.collateralMint, user)
		if err := e.ledger.CreateAccount(ctx, userCollateral, e.collateralMint, user.Hex()); err != nil &&
			!errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("engine: create collateral account: %w", err)
		}
		if err := e.ledger.Transfer(ctx, m.Vault, userCollateral, payout); err != nil {
			return fmt.Errorf("engine: vault payout: %w", err)
		}

		if winning == domain.Yes {
			pos.YesTokens = 0
		} else {
			pos.NoTokens = 0
		}
		if err := e.positions.Upsert(ctx, pos); err != nil {
			return fmt.Errorf("engine: upsert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, domain.NewEvent(domain.EventWinningsRedeemed, marketID, e.clock.Now(), domain.WinningsRedeemed{
		MarketID: marketID,
		User:     user,
		Payout:   payout,
	}))

	e.logger.InfoContext(ctx, "winnings redeemed",
		slog.Uint64("market_id", marketID),
		slog.String("user", user.Hex()),
		slog.Uint64("payout", payout),
	)
	return payout, nil
}

// RedeemCancelled refunds a holder of either outcome after cancellation,
// pro-rata over the combined outstanding supply of both sides. The
// denominator uses supplies as they stood before this caller's burn: the
// burned amounts are added back after burning. Skipping that add-back would
// overpay every caller and drain the vault early.
func (e *Engine) RedeemCancelled(ctx context.Context, user common.Address, marketID uint64) (uint64, error) {
	unlock, err := e.lockMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var refund uint64
	err = e.atomically(ctx, func(ctx context.Context) error {
		m, err := e.markets.Get(ctx, marketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return fmt.Errorf("engine: load market %d: %w", marketID, err)
		}
		if m.Status != domain.StatusCancelled {
			return domain.ErrMarketNotCancelled
		}

		yesAccount := domain.UserTokenAccount(m.YesMint, user)
		noAccount := domain.UserTokenAccount(m.NoMint, user)
		yesBalance, err := e.accountBalance(ctx, yesAccount)
		if err != nil {
			return err
		}
		noBalance, err := e.accountBalance(ctx, noAccount)
		if err != nil {
			return err
		}
		if yesBalance == 0 && noBalance == 0 {
			return domain.ErrNoWinnings
		}

		if yesBalance > 0 {
			if err := e.ledger.Burn(ctx, m.YesMint, yesAccount, yesBalance); err != nil {
				return fmt.Errorf("engine: burn yes tokens: %w", err)
			}
		}
		if noBalance > 0 {
			if err := e.ledger.Burn(ctx, m.NoMint, noAccount, noBalance); err != nil {
				return fmt.Errorf("engine: burn no tokens: %w", err)
			}
		}

		// Post-burn supplies plus the just-burned amounts reconstruct the
		// pre-burn combined supply for the denominator.
		yesSupply, err := e.ledger.Supply(ctx, m.YesMint)
		if err != nil {
			return fmt.Errorf("engine: yes supply: %w", err)
		}
		noSupply, err := e.ledger.Supply(ctx, m.NoMint)
		if err != nil {
			return fmt.Errorf("engine: no supply: %w", err)
		}
		totalSupply, err := addU64(yesSupply, yesBalance)
		if err != nil {
			return err
		}
		totalSupply, err = addU64(totalSupply, noSupply)
		if err != nil {
			return err
		}
		totalSupply, err = addU64(totalSupply, noBalance)
		if err != nil {
			return err
		}
		userTokens, err := addU64(yesBalance, noBalance)
		if err != nil {
			return err
		}

		vaultBalance, err := e.ledger.Balance(ctx, m.Vault)
		if err != nil {
			return fmt.Errorf("engine: vault balance: %w", err)
		}
		refund, err = amm.ProRata(userTokens, vaultBalance, totalSupply)
		if err != nil {
			return err
		}
		if refund == 0 {
			return domain.ErrNoWinnings
		}

		userCollateral := domain.UserTokenAccount(e.collateralMint, user)
		if err := e.ledger.CreateAccount(ctx, userCollateral, e.collateralMint, user.Hex()); err != nil &&
			!errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("engine: create collateral account: %w", err)
		}
		if err := e.ledger.Transfer(ctx, m.Vault, userCollateral, refund); err != nil {
			return fmt.Errorf("engine: vault refund: %w", err)
		}

		pos, err := e.loadOrNewPosition(ctx, marketID, user)
		if err != nil {
			return err
		}
		pos.YesTokens = 0
		pos.NoTokens = 0
		pos.TotalWithdrawn, err = addU64(pos.TotalWithdrawn, refund)
		if err != nil {
			return err
		}
		if err := e.positions.Upsert(ctx, pos); err != nil {
			return fmt.Errorf("engine: upsert position: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, domain.NewEvent(domain.EventCancelledRedeemed, marketID, e.clock.Now(), domain.CancelledRedeemed{
		MarketID: marketID,
		User:     user,
		Refund:   refund,
	}))

	e.logger.InfoContext(ctx, "cancelled market redeemed",
		slog.Uint64("market_id", marketID),
		slog.String("user", user.Hex()),
		slog.Uint64("refund", refund),
	)
	return refund, nil
}

// accountBalance treats a missing ledger account as a zero balance.
func (e *Engine) accountBalance(ctx context.Context, account string) (uint64, error) {
	balance, err := e.ledger.Balance(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("engine: balance of %s: %w", account, err)
	}
	return balance, nil
}
