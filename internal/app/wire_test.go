package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/config"
	"github.com/alanyoungcy/ghostodds/internal/crypto"
	"github.com/alanyoungcy/ghostodds/internal/engine"
	"github.com/alanyoungcy/ghostodds/internal/ledger"
	"github.com/alanyoungcy/ghostodds/internal/store/memory"
)

const bootTestKey = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"

func bootTestEngine(t *testing.T) (*engine.Engine, *memory.PlatformStore) {
	t.Helper()
	led := ledger.New()
	require.NoError(t, led.CreateMint(context.Background(), "usdc", 6, "faucet"))
	platform := memory.NewPlatformStore()
	eng := engine.New(engine.Deps{
		Platform:       platform,
		Events:         memory.NewEventStore(),
		Ledger:         led,
		CollateralMint: "usdc",
		Logger:         slog.New(slog.DiscardHandler),
	})
	return eng, platform
}

func TestBootstrapPlatform(t *testing.T) {
	signer, err := crypto.NewSigner(bootTestKey)
	require.NoError(t, err)
	eng, platform := bootTestEngine(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	cfg := config.PlatformConfig{CollateralMint: "usdc", FeeBps: 250}
	require.NoError(t, bootstrapPlatform(ctx, eng, signer, cfg, logger))

	p, err := platform.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), p.Authority)
	assert.Equal(t, uint16(250), p.FeeBps)

	// A second boot leaves the existing record alone.
	require.NoError(t, bootstrapPlatform(ctx, eng, signer, cfg, logger))
}

func TestBootstrapPlatform_AuthorityMismatch(t *testing.T) {
	signer, err := crypto.NewSigner(bootTestKey)
	require.NoError(t, err)
	eng, platform := bootTestEngine(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	cfg := config.PlatformConfig{
		AuthorityAddress: "0x00000000000000000000000000000000000000a1",
		CollateralMint:   "usdc",
		FeeBps:           100,
	}
	err = bootstrapPlatform(ctx, eng, signer, cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authority_address")

	_, err = platform.Get(ctx)
	assert.Error(t, err)
}

func TestBootstrapPlatform_MatchingAuthority(t *testing.T) {
	signer, err := crypto.NewSigner(bootTestKey)
	require.NoError(t, err)
	eng, platform := bootTestEngine(t)
	ctx := context.Background()

	cfg := config.PlatformConfig{
		AuthorityAddress: signer.Address().Hex(),
		CollateralMint:   "usdc",
		FeeBps:           100,
	}
	require.NoError(t, bootstrapPlatform(ctx, eng, signer, cfg, slog.New(slog.DiscardHandler)))

	p, err := platform.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), p.Authority)
}
