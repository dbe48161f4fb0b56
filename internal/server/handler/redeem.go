package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/server/middleware"
)

// RedeemService defines what the redeem handler needs from the engine.
type RedeemService interface {
	RedeemWinnings(ctx context.Context, user common.Address, marketID uint64) (uint64, error)
	RedeemCancelled(ctx context.Context, user common.Address, marketID uint64) (uint64, error)
}

// RedeemHandler serves payout endpoints for resolved and cancelled markets.
type RedeemHandler struct {
	engine RedeemService
	logger *slog.Logger
}

// NewRedeemHandler creates a RedeemHandler.
func NewRedeemHandler(engine RedeemService, logger *slog.Logger) *RedeemHandler {
	return &RedeemHandler{
		engine: engine,
		logger: logger,
	}
}

// redeemRequest is the body for both redeem endpoints.
type redeemRequest struct {
	MarketID  uint64 `json:"market_id"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

func (h *RedeemHandler) redeem(w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, user common.Address, marketID uint64) (uint64, error),
) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req redeemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.MarketID != id {
		writeError(w, http.StatusBadRequest, "market_id does not match URL")
		return
	}

	payout, err := fn(r.Context(), caller, id)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: "+name+" failed",
				slog.Uint64("market_id", id),
				slog.String("user", caller.Hex()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to "+name)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"user":      caller.Hex(),
		"payout":    payout,
	})
}

// RedeemWinnings pays out the caller's winning tokens on a resolved market.
// POST /api/markets/{id}/redeem
func (h *RedeemHandler) RedeemWinnings(w http.ResponseWriter, r *http.Request) {
	h.redeem(w, r, "redeem winnings", h.engine.RedeemWinnings)
}

// RedeemCancelled refunds the caller's tokens on a cancelled market.
// POST /api/markets/{id}/redeem-cancelled
func (h *RedeemHandler) RedeemCancelled(w http.ResponseWriter, r *http.Request) {
	h.redeem(w, r, "redeem cancelled", h.engine.RedeemCancelled)
}
