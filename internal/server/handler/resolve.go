package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/server/middleware"
)

// ResolveService defines what the resolve handler needs from the engine.
type ResolveService interface {
	ResolveMarket(ctx context.Context, caller common.Address, marketID uint64, outcomeHint *bool) (bool, error)
}

// ResolveHandler serves the market resolution endpoint.
type ResolveHandler struct {
	engine ResolveService
	logger *slog.Logger
}

// NewResolveHandler creates a ResolveHandler.
func NewResolveHandler(engine ResolveService, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		engine: engine,
		logger: logger,
	}
}

// resolveRequest is the body for resolution. Outcome is required for manual
// markets and ignored for oracle markets.
type resolveRequest struct {
	Outcome *bool `json:"outcome"`

	MarketID  uint64 `json:"market_id"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// Resolve settles an expired market.
// POST /api/markets/{id}/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
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

	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.MarketID != id {
		writeError(w, http.StatusBadRequest, "market_id does not match URL")
		return
	}

	outcome, err := h.engine.ResolveMarket(r.Context(), caller, id, req.Outcome)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: resolve failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to resolve market")
		}
		return
	}

	out := "no"
	if outcome {
		out = "yes"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"outcome":   out,
		"status":    "resolved",
	})
}
