package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes so
// handlers do not repeat the same errors.Is ladder. It reports false for
// unrecognized errors; the handler logs those and responds 500 itself.
func writeDomainError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrFeeTooHigh),
		errors.Is(err, domain.ErrQuestionTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrCategoryTooLong),
		errors.Is(err, domain.ErrResolutionSourceTooLong),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrExpiryTooSoon),
		errors.Is(err, domain.ErrOutcomeRequired),
		errors.Is(err, domain.ErrOracleRequired),
		errors.Is(err, domain.ErrMathOverflow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMarketNotActive),
		errors.Is(err, domain.ErrMarketLocked),
		errors.Is(err, domain.ErrMarketNotExpired),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrMarketNotCancelled),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrNoWinnings),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidOracle),
		errors.Is(err, domain.ErrStalePriceData),
		errors.Is(err, domain.ErrPriceConfidenceTooWide):
		writeError(w, http.StatusFailedDependency, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		return false
	}
	return true
}

// decodeBody parses the JSON request body into dst. Bodies are capped at 1 MiB.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// marketIDParam extracts the {id} path parameter as a market id using
// Go 1.22+ built-in routing (http.Request.PathValue).
func marketIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.PathValue("id"), 10, 64)
}

// parseOutcome converts the wire outcome string ("yes" or "no").
func parseOutcome(s string) (domain.Outcome, error) {
	switch s {
	case "yes":
		return domain.Yes, nil
	case "no":
		return domain.No, nil
	default:
		return 0, errors.New(`outcome must be "yes" or "no"`)
	}
}
