package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/server/middleware"
)

// PlatformService defines what the platform handler needs from the engine.
type PlatformService interface {
	InitializePlatform(ctx context.Context, authority common.Address, feeBps uint16) (domain.Platform, error)
}

// PlatformHandler serves platform initialization and inspection endpoints.
type PlatformHandler struct {
	engine   PlatformService
	platform domain.PlatformStore
	logger   *slog.Logger
}

// NewPlatformHandler creates a PlatformHandler.
func NewPlatformHandler(engine PlatformService, platform domain.PlatformStore, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{
		engine:   engine,
		platform: platform,
		logger:   logger,
	}
}

// initPlatformRequest is the body for platform initialization. The signed
// amount field carries the fee in basis points.
type initPlatformRequest struct {
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// InitPlatform initializes the platform with the caller as authority.
// POST /api/platform/init
func (h *PlatformHandler) InitPlatform(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req initPlatformRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Amount > 65535 {
		writeError(w, http.StatusBadRequest, "fee_bps out of range")
		return
	}

	platform, err := h.engine.InitializePlatform(r.Context(), caller, uint16(req.Amount))
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: initialize platform failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to initialize platform")
		}
		return
	}

	writeJSON(w, http.StatusCreated, platform)
}

// GetPlatform returns the platform record.
// GET /api/platform
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	platform, err := h.platform.Get(r.Context())
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: get platform failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get platform")
		}
		return
	}

	writeJSON(w, http.StatusOK, platform)
}
