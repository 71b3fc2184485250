package middleware

import (
	"bytes"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/internal/presentation/http/handler"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayedHeader marks a response served from a stored key
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
	TTL  time.Duration
	Log  *zap.Logger
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key within the same register session. Only 2xx responses are
// stored, so a failed checkout can be retried with the same key.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		sessionID := handler.GetSessionID(c)
		userID := handler.GetUserID(c)
		if sessionID == "" || userID == nil {
			c.Next()
			return
		}

		existing, err := cfg.Repo.GetByKey(c.Request.Context(), idempotencyKey, sessionID)
		if err != nil {
			cfg.Log.Warn("idempotency lookup failed",
				zap.String("key", idempotencyKey),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if existing != nil && !existing.IsExpired(time.Now()) {
			c.Header(IdempotencyReplayedHeader, "true")
			c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
			c.Abort()
			return
		}

		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		now := time.Now()
		ikey := &entity.IdempotencyKey{
			Key:          idempotencyKey,
			SessionID:    sessionID,
			UserID:       *userID,
			Endpoint:     c.Request.Method + " " + c.FullPath(),
			ResponseCode: status,
			ResponseBody: blw.body.String(),
			ExpiresAt:    now.Add(cfg.TTL),
		}
		// The response has been written; the caller's context may be gone.
		if err := cfg.Repo.Create(context.WithoutCancel(c.Request.Context()), ikey); err != nil {
			cfg.Log.Warn("failed to store idempotency key",
				zap.String("key", idempotencyKey),
				zap.Error(err),
			)
		}
	}
}

// StartIdempotencySweeper deletes expired keys every interval until ctx is done
func StartIdempotencySweeper(ctx context.Context, repo repository.IdempotencyRepository, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := repo.DeleteExpired(ctx, now)
				if err != nil {
					log.Warn("failed to delete expired idempotency keys", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Debug("deleted expired idempotency keys", zap.Int64("count", n))
				}
			}
		}
	}()
}
