// Package amm implements the constant-product pricing engine for binary
// outcome markets. All arithmetic is exact and overflow-checked: 64-bit
// reserves are multiplied in wide precision via uint256 and any step that
// would exceed the representable range fails with domain.ErrMathOverflow
// rather than wrapping.
package amm

import (
	"github.com/holiman/uint256"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// feeDenominator is the basis-point scale: fees are feeBps/10_000 of a trade.
const feeDenominator = 10_000

// Quote computes a constant-product swap: add inputAmount to inputReserve,
// hold k = inputReserve*outputReserve invariant, and pay out the difference
// on the output side. Rounding is floor on the output side, so the pool
// retains at least the exact-invariant reserve.
//
// Returns the tokens paid out and the new reserve pair. Fails with
// domain.ErrMathOverflow when either reserve is zero (the division would be
// degenerate) or the new input reserve no longer fits in 64 bits.
func Quote(inputReserve, outputReserve, inputAmount uint64) (tokensOut, newInput, newOutput uint64, err error) {
	if inputReserve == 0 || outputReserve == 0 {
		return 0, 0, 0, domain.ErrMathOverflow
	}

	k := new(uint256.Int).Mul(
		uint256.NewInt(inputReserve),
		uint256.NewInt(outputReserve),
	)
	newIn := new(uint256.Int).Add(
		uint256.NewInt(inputReserve),
		uint256.NewInt(inputAmount),
	)
	if !newIn.IsUint64() {
		return 0, 0, 0, domain.ErrMathOverflow
	}

	newOut := new(uint256.Int).Div(k, newIn)
	// k/newIn <= outputReserve because newIn >= inputReserve, so the result
	// always fits in 64 bits.
	newInput = newIn.Uint64()
	newOutput = newOut.Uint64()
	tokensOut = outputReserve - newOutput
	return tokensOut, newInput, newOutput, nil
}

// Fee computes ceil(amount * feeBps / 10_000). Rounding up is
// protocol-favorable: the trader never underpays the fee by truncation.
func Fee(amount uint64, feeBps uint16) (uint64, error) {
	if feeBps == 0 || amount == 0 {
		return 0, nil
	}

	prod := new(uint256.Int).Mul(
		uint256.NewInt(amount),
		uint256.NewInt(uint64(feeBps)),
	)
	prod.Add(prod, uint256.NewInt(feeDenominator-1))
	prod.Div(prod, uint256.NewInt(feeDenominator))
	if !prod.IsUint64() {
		return 0, domain.ErrMathOverflow
	}
	return prod.Uint64(), nil
}

// ProRata computes floor(balance * pool / supply), the share of a pool owed
// to a holder of balance units out of supply. Used by both winner payouts and
// cancellation refunds. Fails on zero supply or a result exceeding 64 bits.
func ProRata(balance, pool, supply uint64) (uint64, error) {
	if supply == 0 {
		return 0, domain.ErrMathOverflow
	}

	prod := new(uint256.Int).Mul(
		uint256.NewInt(balance),
		uint256.NewInt(pool),
	)
	prod.Div(prod, uint256.NewInt(supply))
	if !prod.IsUint64() {
		return 0, domain.ErrMathOverflow
	}
	return prod.Uint64(), nil
}
