package handler

import (
	"log/slog"
	"net/http"
)

// PriceSetter is the hand-fed price source dev mode runs on.
type PriceSetter interface {
	SetPrice(feedID string, price int64, conf uint64, expo int32)
}

// DevHandler serves endpoints that only exist in dev mode, where oracle
// prices have to be injected by hand for oracle markets to resolve.
type DevHandler struct {
	prices PriceSetter
	logger *slog.Logger
}

// NewDevHandler creates a DevHandler.
func NewDevHandler(prices PriceSetter, logger *slog.Logger) *DevHandler {
	return &DevHandler{
		prices: prices,
		logger: logger,
	}
}

// setPriceRequest mirrors the oracle snapshot fields: price and expo combine
// into price * 10^expo, conf is the confidence interval in the same units.
type setPriceRequest struct {
	FeedID string `json:"feed_id"`
	Price  int64  `json:"price"`
	Conf   uint64 `json:"conf"`
	Expo   int32  `json:"expo"`
}

// SetPrice stores a price snapshot for a feed.
// POST /api/dev/price
func (h *DevHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.FeedID == "" {
		writeError(w, http.StatusBadRequest, "feed_id must not be empty")
		return
	}

	h.prices.SetPrice(req.FeedID, req.Price, req.Conf, req.Expo)

	h.logger.InfoContext(r.Context(), "handler: dev price set",
		slog.String("feed_id", req.FeedID),
		slog.Int64("price", req.Price),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"feed_id": req.FeedID,
		"status":  "set",
	})
}
