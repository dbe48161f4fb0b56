package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

func TestStaticSource(t *testing.T) {
	src := NewStaticSource()
	ctx := context.Background()

	_, err := src.Latest(ctx, "btc-usd")
	assert.ErrorIs(t, err, domain.ErrInvalidOracle)

	src.SetPrice("btc-usd", 60_000_000_000, 5_000_000, -6)

	snap, err := src.Latest(ctx, "btc-usd")
	require.NoError(t, err)
	assert.Equal(t, "btc-usd", snap.FeedID)
	assert.Equal(t, int64(60_000_000_000), snap.Price)
	assert.Equal(t, uint64(5_000_000), snap.Conf)
	assert.Equal(t, int32(-6), snap.Expo)
	assert.NotZero(t, snap.PublishTime)

	// A later set replaces the snapshot.
	src.SetPrice("btc-usd", 59_000_000_000, 5_000_000, -6)
	snap, err = src.Latest(ctx, "btc-usd")
	require.NoError(t, err)
	assert.Equal(t, int64(59_000_000_000), snap.Price)
}
