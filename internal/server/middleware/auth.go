package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/crypto"
	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// callerKey is the context key under which the recovered caller address is
// stored for downstream handlers.
type callerKey struct{}

// CallerFrom returns the caller address recovered by RequireSigned, if any.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// signedFields are the authentication fields every mutating request body must
// carry alongside its operation parameters. MarketID and Amount are part of
// the signed payload, so tampering with either invalidates the signature.
type signedFields struct {
	MarketID  uint64 `json:"market_id"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// RequireSigned wraps a mutating route with signature authentication. The
// request body must contain market_id, amount, timestamp, and signature
// fields; the signature is verified against the canonical message for op and
// the recovered address is placed in the request context. Timestamps outside
// maxSkew of the server clock are rejected to bound replay.
//
// The body is restored before the wrapped handler runs, so handlers decode it
// again with their full request structs.
func RequireSigned(op string, clock domain.Clock, maxSkew time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
			if err != nil {
				writeAuthError(w, http.StatusBadRequest, "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var fields signedFields
			if err := json.Unmarshal(body, &fields); err != nil {
				writeAuthError(w, http.StatusBadRequest, "malformed request body")
				return
			}
			if fields.Signature == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing signature")
				return
			}

			// Timestamps are epoch seconds; nonpositive values are rejected
			// outright so extreme inputs cannot wrap the skew arithmetic.
			now := clock.Now()
			ts := fields.Timestamp
			if ts <= 0 || !withinSkew(now, ts, maxSkew) {
				writeAuthError(w, http.StatusUnauthorized, "timestamp outside allowed window")
				return
			}

			msg := crypto.OperationMessage{
				Operation: op,
				MarketID:  fields.MarketID,
				Amount:    fields.Amount,
				Timestamp: fields.Timestamp,
			}
			caller, err := crypto.RecoverSigner(msg, fields.Signature)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next(w, r.WithContext(ctx))
		}
	}
}

// withinSkew reports whether ts lies within maxSkew seconds of now. Both
// operands are positive when called, so the differences cannot overflow.
func withinSkew(now, ts int64, maxSkew time.Duration) bool {
	skew := now - ts
	if ts > now {
		skew = ts - now
	}
	return skew <= int64(maxSkew/time.Second)
}

// writeAuthError sends an authentication failure as a JSON error body.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
