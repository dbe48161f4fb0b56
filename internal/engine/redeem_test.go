package engine

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// resolveYes moves the clock to expiry and resolves the market YES.
func (f *fixture) resolveYes(m domain.Market) {
	f.t.Helper()
	f.clock.now = m.ExpiresAt
	hint := true
	_, err := f.eng.ResolveMarket(context.Background(), authority, m.ID, &hint)
	require.NoError(f.t, err)
}

// mintClaim credits claim tokens of the given mint straight onto a user's
// account, bypassing the AMM.
func (f *fixture) mintClaim(mint string, user common.Address, amount uint64) {
	f.t.Helper()
	ctx := context.Background()
	account := domain.UserTokenAccount(mint, user)
	require.NoError(f.t, f.ledger.CreateAccount(ctx, account, mint, user.Hex()))
	require.NoError(f.t, f.ledger.MintTo(ctx, mint, account, amount))
}

func TestRedeemWinnings_SoleWinnerTakesVault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)
	f.fund(bob, 1_000_000)

	_, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)
	buyNo, err := f.eng.BuyOutcome(ctx, bob, m.ID, 200_000, domain.No, 0)
	require.NoError(t, err)
	require.NotZero(t, buyNo.TokensOut)

	f.resolveYes(m)

	// Alice holds the entire winning supply, so her pro-rata share is the
	// whole vault: 1,000,000 initial plus both net buy inputs.
	vault, err := f.ledger.Balance(ctx, f.market(m.ID).Vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_297_000), vault)

	payout, err := f.eng.RedeemWinnings(ctx, alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, vault, payout)
	assert.Equal(t, uint64(900_000)+payout, f.collateralBalance(alice))

	after, err := f.ledger.Balance(ctx, f.market(m.ID).Vault)
	require.NoError(t, err)
	assert.Zero(t, after)

	pos, err := f.positions.Get(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, pos.YesTokens)
	assert.Equal(t, payout, pos.TotalWithdrawn)

	// Balance-driven idempotence: the burn left nothing to redeem twice.
	_, err = f.eng.RedeemWinnings(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrNoWinnings)

	// Losing-side tokens are worthless.
	_, err = f.eng.RedeemWinnings(ctx, bob, m.ID)
	assert.ErrorIs(t, err, domain.ErrNoWinnings)
}

func TestRedeemWinnings_ProRataNeverExceedsVault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)
	f.fund(bob, 1_000_000)

	_, err := f.eng.BuyOutcome(ctx, alice, m.ID, 150_000, domain.Yes, 0)
	require.NoError(t, err)
	_, err = f.eng.BuyOutcome(ctx, bob, m.ID, 70_000, domain.Yes, 0)
	require.NoError(t, err)

	f.resolveYes(m)

	vaultBefore, err := f.ledger.Balance(ctx, f.market(m.ID).Vault)
	require.NoError(t, err)

	supply, err := f.ledger.Supply(ctx, m.YesMint)
	require.NoError(t, err)
	aliceBalance, err := f.ledger.Balance(ctx, domain.UserTokenAccount(m.YesMint, alice))
	require.NoError(t, err)

	alicePayout, err := f.eng.RedeemWinnings(ctx, alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceBalance*vaultBefore/supply, alicePayout)

	bobPayout, err := f.eng.RedeemWinnings(ctx, bob, m.ID)
	require.NoError(t, err)

	assert.LessOrEqual(t, alicePayout+bobPayout, vaultBefore)

	remaining, err := f.ledger.Balance(ctx, f.market(m.ID).Vault)
	require.NoError(t, err)
	assert.Equal(t, vaultBefore-alicePayout-bobPayout, remaining)
}

func TestRedeemWinnings_WrongStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	_, err := f.eng.RedeemWinnings(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)

	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))
	_, err = f.eng.RedeemWinnings(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)
}

func TestRedeemCancelled_ProRataRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	// 1,000 claim tokens outstanding over a 1,000,000 vault: each token is
	// worth 1,000 collateral regardless of side.
	f.mintClaim(m.YesMint, alice, 300)
	f.mintClaim(m.NoMint, bob, 700)
	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))

	aliceRefund, err := f.eng.RedeemCancelled(ctx, alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000), aliceRefund)

	bobRefund, err := f.eng.RedeemCancelled(ctx, bob, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(700_000), bobRefund)

	vault, err := f.ledger.Balance(ctx, m.Vault)
	require.NoError(t, err)
	assert.Zero(t, vault)

	_, err = f.eng.RedeemCancelled(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrNoWinnings)
}

func TestRedeemCancelled_BothSidesCombined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	f.mintClaim(m.YesMint, alice, 250)
	f.mintClaim(m.NoMint, alice, 250)
	f.mintClaim(m.NoMint, bob, 500)
	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))

	refund, err := f.eng.RedeemCancelled(ctx, alice, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), refund)

	pos, err := f.positions.Get(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, pos.YesTokens)
	assert.Zero(t, pos.NoTokens)
	assert.Equal(t, refund, pos.TotalWithdrawn)
}

func TestRedeemCancelled_WrongStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	_, err := f.eng.RedeemCancelled(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotCancelled)

	f.resolveYes(m)
	_, err = f.eng.RedeemCancelled(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotCancelled)
}

func TestRedeemCancelled_NoTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))

	_, err := f.eng.RedeemCancelled(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrNoWinnings)
}
