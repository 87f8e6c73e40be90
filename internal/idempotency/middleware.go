package idempotency

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	HeaderKey = "Idempotency-Key"
	HeaderHit = "X-Idempotency-Hit"

	inProgress = "PROCESSING"
	lockTTL    = 30 * time.Second
)

// storedResponse is what gets replayed for a repeated key
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware makes state-changing requests carrying an Idempotency-Key run at
// most once per key within ttl. The first response is stored and replayed;
// a request arriving while the first is still running gets 409. Server errors
// are not stored so the client can retry. Requests without a key, and requests
// made while Redis is unreachable, pass straight through.
func Middleware(client *redis.Client, ttl time.Duration, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			redisKey := fmt.Sprintf("idempotency:%s:%s:%s", r.Header.Get("X-Actor-ID"), r.URL.Path, key)
			ctx := r.Context()

			acquired, err := client.SetNX(ctx, redisKey, inProgress, lockTTL).Result()
			if err != nil {
				logger.WithError(err).Warn("Idempotency store unavailable, processing request without it")
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				replay(w, client, r, redisKey)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				client.Del(ctx, redisKey)
				return
			}

			payload, err := json.Marshal(storedResponse{Status: rec.status, Body: bodyOrNull(rec.body.Bytes())})
			if err != nil {
				client.Del(ctx, redisKey)
				return
			}
			if err := client.Set(ctx, redisKey, payload, ttl).Err(); err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("Failed to store idempotent response")
			}
		})
	}
}

func replay(w http.ResponseWriter, client *redis.Client, r *http.Request, redisKey string) {
	val, err := client.Get(r.Context(), redisKey).Result()
	if err != nil || val == inProgress {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"a request with this idempotency key is already in progress"}`))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"request already processed"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderHit, "true")
	w.WriteHeader(stored.Status)
	w.Write(stored.Body)
}

func bodyOrNull(b []byte) json.RawMessage {
	if len(bytes.TrimSpace(b)) == 0 || !json.Valid(b) {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
