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

// MarketService defines what the market handler needs from the engine.
type MarketService interface {
	CreateMarket(ctx context.Context, caller common.Address, params engine.CreateMarketParams) (domain.Market, error)
	CancelMarket(ctx context.Context, caller common.Address, marketID uint64) error
}

// MarketReader reads markets, preferring the cache when one is configured.
type MarketReader interface {
	Get(ctx context.Context, id uint64) (domain.Market, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	Count(ctx context.Context) (int64, error)
}

// MarketHandler serves market lifecycle and inspection endpoints.
type MarketHandler struct {
	engine  MarketService
	markets MarketReader
	events  domain.EventStore
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(engine MarketService, markets MarketReader, events domain.EventStore, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		engine:  engine,
		markets: markets,
		events:  events,
		logger:  logger,
	}
}

// createMarketRequest is the body for market creation. The signed amount
// field carries the initial liquidity.
type createMarketRequest struct {
	Question         string  `json:"question"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	ResolutionSource string  `json:"resolution_source"`
	ResolutionValue  *uint64 `json:"resolution_value"`
	// ResolutionOperator is ">=", "<=", or "==". Ignored for manual markets.
	ResolutionOperator string `json:"resolution_operator"`
	OracleFeed         string `json:"oracle_feed"`
	ExpiresAt          int64  `json:"expires_at"`

	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// parseOperator maps the wire operator symbol onto its domain value.
func parseOperator(s string) (domain.ResolutionOperator, bool) {
	switch s {
	case "", ">=":
		return domain.OpGTE, true
	case "<=":
		return domain.OpLTE, true
	case "==":
		return domain.OpEQ, true
	default:
		return 0, false
	}
}

// CreateMarket creates a new market funded by the caller.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req createMarketRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	op, ok := parseOperator(req.ResolutionOperator)
	if !ok {
		writeError(w, http.StatusBadRequest, `resolution_operator must be ">=", "<=", or "=="`)
		return
	}

	market, err := h.engine.CreateMarket(r.Context(), caller, engine.CreateMarketParams{
		Question:           req.Question,
		Description:        req.Description,
		Category:           req.Category,
		ResolutionSource:   req.ResolutionSource,
		ResolutionValue:    req.ResolutionValue,
		ResolutionOperator: op,
		OracleFeed:         req.OracleFeed,
		ExpiresAt:          req.ExpiresAt,
		InitialLiquidity:   req.Amount,
	})
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: create market failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create market")
		}
		return
	}

	writeJSON(w, http.StatusCreated, marketResponse(market))
}

// CancelMarket cancels an unresolved market.
// POST /api/markets/{id}/cancel
func (h *MarketHandler) CancelMarket(w http.ResponseWriter, r *http.Request) {
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

	if err := h.engine.CancelMarket(r.Context(), caller, id); err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: cancel market failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to cancel market")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"market_id": id, "status": "cancelled"})
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketView `json:"markets"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// ListMarkets returns markets with pagination, optionally filtered by status.
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		markets []domain.Market
		err     error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "":
		markets, err = h.markets.List(r.Context(), opts)
	case "active":
		markets, err = h.markets.ListByStatus(r.Context(), domain.StatusActive, opts)
	case "resolved":
		markets, err = h.markets.ListByStatus(r.Context(), domain.StatusResolved, opts)
	case "cancelled":
		markets, err = h.markets.ListByStatus(r.Context(), domain.StatusCancelled, opts)
	default:
		writeError(w, http.StatusBadRequest, "status must be active, resolved, or cancelled")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	views := make([]marketView, len(markets))
	for i, m := range markets {
		views[i] = marketResponse(m)
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: views,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "handler: get market failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get market")
		}
		return
	}

	writeJSON(w, http.StatusOK, marketResponse(market))
}

// ListEvents returns the event log for one market, oldest first.
// GET /api/markets/{id}/events
func (h *MarketHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	events, err := h.events.ListByMarket(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// marketView is the JSON projection of a market. Prices are the current
// implied probabilities from the AMM reserves.
type marketView struct {
	ID               uint64  `json:"id"`
	Authority        string  `json:"authority"`
	Question         string  `json:"question"`
	Description      string  `json:"description,omitempty"`
	Category         string  `json:"category,omitempty"`
	ResolutionSource string  `json:"resolution_source,omitempty"`
	YesAmount        uint64  `json:"yes_amount"`
	NoAmount         uint64  `json:"no_amount"`
	TotalLiquidity   uint64  `json:"total_liquidity"`
	Volume           uint64  `json:"volume"`
	YesPrice         float64 `json:"yes_price"`
	NoPrice          float64 `json:"no_price"`
	ResolutionValue  *uint64 `json:"resolution_value,omitempty"`
	OracleFeed       string  `json:"oracle_feed,omitempty"`
	CreatedAt        int64   `json:"created_at"`
	ExpiresAt        int64   `json:"expires_at"`
	LockTime         int64   `json:"lock_time"`
	ResolvedAt       *int64  `json:"resolved_at,omitempty"`
	Outcome          *string `json:"outcome,omitempty"`
	Status           string  `json:"status"`
	FeeBps           uint16  `json:"fee_bps"`
}

// marketResponse projects a domain market into its wire form.
func marketResponse(m domain.Market) marketView {
	v := marketView{
		ID:               m.ID,
		Authority:        m.Authority.Hex(),
		Question:         m.Question,
		Description:      m.Description,
		Category:         m.Category,
		ResolutionSource: m.ResolutionSource,
		YesAmount:        m.YesAmount,
		NoAmount:         m.NoAmount,
		TotalLiquidity:   m.TotalLiquidity,
		Volume:           m.Volume,
		ResolutionValue:  m.ResolutionValue,
		OracleFeed:       m.OracleFeed,
		CreatedAt:        m.CreatedAt,
		ExpiresAt:        m.ExpiresAt,
		LockTime:         m.LockTime,
		ResolvedAt:       m.ResolvedAt,
		Status:           m.Status.String(),
		FeeBps:           m.FeeBps,
	}
	// Implied probability of YES is the share of the pool backing NO.
	if total := m.YesAmount + m.NoAmount; total > 0 {
		v.YesPrice = float64(m.NoAmount) / float64(total)
		v.NoPrice = float64(m.YesAmount) / float64(total)
	}
	if m.Outcome != nil {
		s := m.Outcome.String()
		v.Outcome = &s
	}
	return v
}
