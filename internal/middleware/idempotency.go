package middleware

import (
	"bytes"
	"context"
	"net/http"

	infraRedis "github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/redis"
	"github.com/rs/zerolog/log"
)

const maxIdempotencyBodySize = 1 << 20

// IdempotencyStore keeps the first response written for a key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*infraRedis.IdempotencyEntry, error)
	Set(ctx context.Context, key string, entry *infraRedis.IdempotencyEntry) error
}

// Idempotency replays the stored response when a request repeats its
// Idempotency-Key. Keys are scoped to the authenticated user.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if userID, ok := GetUserID(r.Context()); ok {
				key = userID + ":" + key
			}

			entry, err := store.Get(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency lookup failed, handling request")
			}
			if err == nil && entry != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.Status)
				w.Write(entry.Body)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 500 && !rec.bodyTruncated {
				if err := store.Set(r.Context(), key, &infraRedis.IdempotencyEntry{
					Status: rec.statusCode,
					Body:   rec.body.Bytes(),
				}); err != nil {
					log.Warn().Err(err).Msg("failed to store idempotent response")
				}
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
