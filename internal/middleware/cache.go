package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ResponseCache memoizes successful GET responses in process memory.
// Used on the public offer listings, which change only when an operator
// edits the catalog.
type ResponseCache struct {
	store *cache.Cache
}

func NewResponseCache(ttl, cleanupInterval time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, cleanupInterval)}
}

func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if item, found := rc.store.Get(key); found {
			resp := item.(*cachedResponse)
			c.Data(resp.status, resp.contentType, resp.body)
			c.Abort()
			return
		}

		w := &cacheWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rc.store.SetDefault(key, &cachedResponse{
				status:      c.Writer.Status(),
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        w.body.Bytes(),
			})
		}
	}
}

// Flush drops every cached response; called after catalog mutations.
func (rc *ResponseCache) Flush() {
	rc.store.Flush()
}
