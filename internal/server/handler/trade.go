package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/engine"
	"github.com/alanyoungcy/ghostodds/internal/server/middleware"
)

// TradeService defines what the trade handler needs from the engine.
type TradeService interface {
	BuyOutcome(ctx context.Context, user common.Address, marketID, amount uint64, outcome domain.Outcome, minTokensOut uint64) (engine.BuyResult, error)
	SellOutcome(ctx context.Context, user common.Address, marketID, amount uint64, outcome domain.Outcome, minCollateralOut uint64) (engine.SellResult, error)
}

// TradeHandler serves buy and sell endpoints.
type TradeHandler struct {
	engine TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(engine TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		engine: engine,
		logger: logger,
	}
}

// tradeRequest is the body for buy and sell. For buys the signed amount is
// collateral in; for sells it is outcome tokens in. Min is the slippage
// floor: minimum tokens out on a buy, minimum collateral out on a sell.
type tradeRequest struct {
	Outcome string `json:"outcome"`
	Min     uint64 `json:"min"`

	MarketID  uint64 `json:"market_id"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// parseTrade validates the shared trade request shape against the URL.
func (h *TradeHandler) parseTrade(w http.ResponseWriter, r *http.Request) (common.Address, tradeRequest, domain.Outcome, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return common.Address{}, tradeRequest{}, 0, false
	}

	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return common.Address{}, tradeRequest{}, 0, false
	}

	var req tradeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return common.Address{}, tradeRequest{}, 0, false
	}
	if req.MarketID != id {
		writeError(w, http.StatusBadRequest, "market_id does not match URL")
		return common.Address{}, tradeRequest{}, 0, false
	}

	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return common.Address{}, tradeRequest{}, 0, false
	}

	return caller, req, outcome, true
}

// Buy swaps collateral for outcome tokens.
// POST /api/markets/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	caller, req, outcome, ok := h.parseTrade(w, r)
	if !ok {
		return
	}

	res, err := h.engine.BuyOutcome(r.Context(), caller, req.MarketID, req.Amount, outcome, req.Min)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: buy failed",
				slog.Uint64("market_id", req.MarketID),
				slog.String("user", caller.Hex()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to buy outcome")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":  req.MarketID,
		"outcome":    outcome.String(),
		"amount_in":  req.Amount,
		"tokens_out": res.TokensOut,
		"fee":        res.Fee,
	})
}

// Sell swaps outcome tokens back for collateral.
// POST /api/markets/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	caller, req, outcome, ok := h.parseTrade(w, r)
	if !ok {
		return
	}

	res, err := h.engine.SellOutcome(r.Context(), caller, req.MarketID, req.Amount, outcome, req.Min)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: sell failed",
				slog.Uint64("market_id", req.MarketID),
				slog.String("user", caller.Hex()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to sell outcome")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":      req.MarketID,
		"outcome":        outcome.String(),
		"tokens_in":      req.Amount,
		"collateral_out": res.CollateralOut,
		"fee":            res.Fee,
	})
}
