package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

func newLedger(t *testing.T) (*Ledger, context.Context) {
	t.Helper()
	l := New()
	ctx := context.Background()
	require.NoError(t, l.CreateMint(ctx, "usdc", 6, "platform"))
	require.NoError(t, l.CreateAccount(ctx, "alice", "usdc", "alice"))
	require.NoError(t, l.CreateAccount(ctx, "bob", "usdc", "bob"))
	return l, ctx
}

func TestMintTransferBurn(t *testing.T) {
	l, ctx := newLedger(t)

	require.NoError(t, l.MintTo(ctx, "usdc", "alice", 1_000))
	require.NoError(t, l.Transfer(ctx, "alice", "bob", 400))
	require.NoError(t, l.Burn(ctx, "usdc", "bob", 100))

	aliceBal, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), aliceBal)

	bobBal, err := l.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), bobBal)

	supply, err := l.Supply(ctx, "usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(900), supply)
}

func TestDuplicateCreation(t *testing.T) {
	l, ctx := newLedger(t)

	assert.ErrorIs(t, l.CreateMint(ctx, "usdc", 6, "platform"), domain.ErrAlreadyExists)
	assert.ErrorIs(t, l.CreateAccount(ctx, "alice", "usdc", "alice"), domain.ErrAlreadyExists)
}

func TestInsufficientBalance(t *testing.T) {
	l, ctx := newLedger(t)

	require.NoError(t, l.MintTo(ctx, "usdc", "alice", 50))

	assert.ErrorIs(t, l.Transfer(ctx, "alice", "bob", 51), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, l.Burn(ctx, "usdc", "alice", 51), domain.ErrInsufficientBalance)

	// Failed moves leave balances untouched.
	bal, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), bal)
}

func TestCrossMintTransferRejected(t *testing.T) {
	l, ctx := newLedger(t)

	require.NoError(t, l.CreateMint(ctx, "market:0:yes", 6, "platform"))
	require.NoError(t, l.CreateAccount(ctx, "alice-yes", "market:0:yes", "alice"))
	require.NoError(t, l.MintTo(ctx, "usdc", "alice", 100))

	err := l.Transfer(ctx, "alice", "alice-yes", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestUnknownMintAndAccount(t *testing.T) {
	l, ctx := newLedger(t)

	assert.ErrorIs(t, l.CreateAccount(ctx, "x", "nope", "alice"), domain.ErrNotFound)
	assert.ErrorIs(t, l.MintTo(ctx, "nope", "alice", 1), domain.ErrNotFound)

	_, err := l.Balance(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.Supply(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
