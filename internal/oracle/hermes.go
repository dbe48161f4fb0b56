// Package oracle provides price feed sources for market resolution.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// HermesClient fetches the latest price for a feed from a Pyth Hermes
// endpoint, e.g. "https://hermes.pyth.network".
type HermesClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHermesClient creates a Hermes price source.
func NewHermesClient(baseURL string) *HermesClient {
	return &HermesClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// hermesResponse mirrors the /v2/updates/price/latest payload, keeping only
// the parsed price fields.
type hermesResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// Latest fetches the newest published price for the feed id.
func (h *HermesClient) Latest(ctx context.Context, feedID string) (domain.PriceSnapshot, error) {
	params := url.Values{}
	params.Set("ids[]", feedID)
	endpoint := h.baseURL + "/v2/updates/price/latest?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: fetch feed %s: %w", feedID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: feed %s: status %d: %s", feedID, resp.StatusCode, body)
	}

	var decoded hermesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: decode feed %s: %w", feedID, err)
	}
	if len(decoded.Parsed) == 0 {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: feed %s: empty response", feedID)
	}

	parsed := decoded.Parsed[0]
	price, err := strconv.ParseInt(parsed.Price.Price, 10, 64)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: parse price %q: %w", parsed.Price.Price, err)
	}
	conf, err := strconv.ParseUint(parsed.Price.Conf, 10, 64)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("oracle: parse conf %q: %w", parsed.Price.Conf, err)
	}

	return domain.PriceSnapshot{
		FeedID:      feedID,
		Price:       price,
		Conf:        conf,
		Expo:        parsed.Price.Expo,
		PublishTime: parsed.Price.PublishTime,
	}, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*HermesClient)(nil)
