package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// PositionHandler serves position inspection endpoints.
type PositionHandler struct {
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions domain.PositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// ListByUser returns all positions held by one user.
// GET /api/positions?user=0x...
func (h *PositionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userParam := r.URL.Query().Get("user")
	if !common.IsHexAddress(userParam) {
		writeError(w, http.StatusBadRequest, "user must be a hex address")
		return
	}
	user := common.HexToAddress(userParam)

	positions, err := h.positions.ListByUser(r.Context(), user, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions by user failed",
			slog.String("user", user.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

// ListByMarket returns all positions in one market.
// GET /api/markets/{id}/positions
func (h *PositionHandler) ListByMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	positions, err := h.positions.ListByMarket(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions by market failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}
