package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gtm-backend/internal/common/logger"
)

const responseCachePrefix = "gtm:httpcache:"

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

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

// ResponseCache caches successful GET responses keyed by full URL. A nil
// client disables it.
func ResponseCache(rdb redis.Cmdable, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := responseCachePrefix + c.Request.URL.RequestURI()
		if bs, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil && len(bs) > 0 {
			var entry cachedResponse
			if json.Unmarshal(bs, &entry) == nil {
				c.Header("X-Cache", "HIT")
				c.Data(entry.Status, entry.ContentType, entry.Body)
				c.Abort()
				return
			}
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header("X-Cache", "MISS")
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 || len(c.Errors) > 0 {
			return
		}
		entry := cachedResponse{Status: status, ContentType: rec.Header().Get("Content-Type"), Body: rec.buf.Bytes()}
		payload, err := json.Marshal(entry)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			logger.Debug().Err(err).Str("key", key).Msg("response cache write failed")
		}
	}
}
