package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long a stored response is replayed
	IdempotencyKeyTTL = 24 * time.Hour

	replayedHeader = "X-Idempotency-Replayed"
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
}

// bodyRecorder tees the response body so it can be stored after the handler
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyScope identifies one logical request: the same key sent by
// another user or to another route is a different request.
type idempotencyScope struct {
	key      string
	userID   uuid.UUID
	endpoint string
}

func scopeOf(c *gin.Context) (idempotencyScope, bool) {
	if c.Request.Method != http.MethodPost {
		return idempotencyScope{}, false
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		return idempotencyScope{}, false
	}
	userID, ok := c.Get("user_id")
	if !ok {
		return idempotencyScope{}, false
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		return idempotencyScope{}, false
	}
	return idempotencyScope{key: key, userID: id, endpoint: c.Request.Method + " " + c.FullPath()}, true
}

// Idempotency replays the stored response of a settlement POST that carries
// an Idempotency-Key already seen for the same user and route. Server errors
// are not stored so the client can retry them.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := scopeOf(c)
		if !ok {
			c.Next()
			return
		}

		stored, err := config.Repo.GetByKey(c.Request.Context(), scope.key, scope.userID, scope.endpoint)
		if err == nil && stored != nil && !stored.IsExpired() {
			c.Header(replayedHeader, "true")
			c.Data(stored.ResponseCode, "application/json", []byte(stored.ResponseBody))
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		_ = config.Repo.Create(c.Request.Context(), &entity.IdempotencyKey{
			Key:          scope.key,
			UserID:       scope.userID,
			Endpoint:     scope.endpoint,
			ResponseCode: status,
			ResponseBody: recorder.buf.String(),
			ExpiresAt:    time.Now().Add(IdempotencyKeyTTL),
		})
	}
}

// PurgeExpiredKeys deletes expired idempotency keys every interval until ctx
// is done.
func PurgeExpiredKeys(ctx context.Context, repo repository.IdempotencyRepository, interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := repo.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("failed to purge idempotency keys", zap.Error(err))
				}
				continue
			}
			if removed > 0 {
				logger.Debug("purged idempotency keys", zap.Int64("removed", removed))
			}
		case <-ctx.Done():
			return nil
		}
	}
}
