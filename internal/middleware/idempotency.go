package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// How long the "in-progress" marker is held before a retry may take over a
// request whose first attempt died mid-flight.
const provisionalLockTTL = 60 * time.Second

type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a completed mutating request
// that carried the same Idempotency-Key, and rejects key reuse with a
// different body. Retries over HTTP are caller-driven; this makes them safe.
func Idempotency(rdb *redis.Client, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		sum := sha256.Sum256(body)
		bhash := hex.EncodeToString(sum[:])

		actor, _ := ActorFrom(c)
		redisKey := fmt.Sprintf("idemp:%s:%s:%s:%s", c.Request.Method, c.FullPath(), actor.UserID, key)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		entry := idempEntry{InProgress: true, BodySHA256: bhash, CreatedAt: time.Now().UTC()}
		raw, _ := json.Marshal(entry)
		ok, err := rdb.SetNX(ctx, redisKey, raw, provisionalLockTTL).Result()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "idempotency store unavailable"})
			return
		}

		if !ok {
			cur, err := loadEntry(ctx, rdb, redisKey)
			if err != nil {
				log.Warn("failed to load idempotency entry", zap.String("key", redisKey), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "idempotency store unavailable"})
				return
			}
			if cur.BodySHA256 != bhash {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Idempotency-Key reused with a different body"})
				return
			}
			if cur.InProgress {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this Idempotency-Key is in progress"})
				return
			}
			// Replay the completed response.
			c.Data(cur.Code, "application/json", cur.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		done := idempEntry{
			Code:       rec.Status(),
			Body:       rec.buf.Bytes(),
			BodySHA256: bhash,
			CreatedAt:  time.Now().UTC(),
		}
		raw, _ = json.Marshal(done)
		storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer storeCancel()
		if err := rdb.Set(storeCtx, redisKey, raw, ttl).Err(); err != nil {
			log.Warn("failed to store idempotency entry", zap.String("key", redisKey), zap.Error(err))
		}
	}
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (*idempEntry, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var entry idempEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
