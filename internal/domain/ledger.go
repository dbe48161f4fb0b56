package domain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the fungible-asset primitive the engine consumes. Mints and
// accounts are identified by deterministic string ids derived from stable
// seeds; balances are integers in the asset's base unit. Implementations must
// reject burns and transfers that exceed the source balance with
// ErrInsufficientBalance, and must keep per-mint supply equal to the sum of
// its account balances.
type TokenLedger interface {
	// CreateMint registers a new fungible asset class. The authority is the
	// only party allowed to mint.
	CreateMint(ctx context.Context, mint string, decimals uint8, authority string) error

	// CreateAccount registers a balance-holding account for the given mint,
	// owned by the given party id.
	CreateAccount(ctx context.Context, account, mint, owner string) error

	MintTo(ctx context.Context, mint, account string, amount uint64) error
	Burn(ctx context.Context, mint, account string, amount uint64) error
	Transfer(ctx context.Context, from, to string, amount uint64) error

	Balance(ctx context.Context, account string) (uint64, error)
	Supply(ctx context.Context, mint string) (uint64, error)
}

// Deterministic id derivation from stable seeds, mirroring the on-chain
// program-derived-address scheme: every record and ledger account for a
// market is addressable from the market id alone.

// MarketSeed returns the storage seed for a market record.
func MarketSeed(marketID uint64) string {
	return fmt.Sprintf("market:%d", marketID)
}

// PositionSeed returns the storage seed for a (market, user) position.
func PositionSeed(marketID uint64, user common.Address) string {
	return fmt.Sprintf("position:%d:%s", marketID, user.Hex())
}

// YesMintSeed returns the ledger mint id for a market's YES claim token.
func YesMintSeed(marketID uint64) string {
	return fmt.Sprintf("yes_mint:%d", marketID)
}

// NoMintSeed returns the ledger mint id for a market's NO claim token.
func NoMintSeed(marketID uint64) string {
	return fmt.Sprintf("no_mint:%d", marketID)
}

// TreasurySeed returns the ledger account id of the platform fee treasury
// for the given collateral mint.
func TreasurySeed(collateralMint string) string {
	return "treasury:" + collateralMint
}

// VaultSeed returns the ledger account id for a market's collateral vault.
func VaultSeed(marketID uint64) string {
	return fmt.Sprintf("vault:%d", marketID)
}

// UserTokenAccount returns the ledger account id holding a user's balance of
// the given mint.
func UserTokenAccount(mint string, user common.Address) string {
	return fmt.Sprintf("%s:%s", mint, user.Hex())
}
