package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// GenerationLimiter bounds how many generation requests run at once. Requests
// beyond the limit wait until a slot frees or the client goes away.
type GenerationLimiter struct {
	log *logger.Logger
	sem *semaphore.Weighted
}

func NewGenerationLimiter(log *logger.Logger) *GenerationLimiter {
	limit := envutil.Int("GENERATION_CONCURRENCY", 8)
	if limit < 1 {
		limit = 1
	}
	return &GenerationLimiter{
		log: log.With("middleware", "GenerationLimiter"),
		sem: semaphore.NewWeighted(int64(limit)),
	}
}

func (gl *GenerationLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gl.sem.Acquire(c.Request.Context(), 1); err != nil {
			gl.log.Warn("request abandoned while waiting for slot", "path", c.FullPath())
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer gl.sem.Release(1)
		c.Next()
	}
}
