package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

type brotliWriter struct {
	gin.ResponseWriter
	writer *brotli.Writer
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	return bw.writer.Write(data)
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.writer.Write([]byte(s))
}

// Brotli compresses JSON responses for clients that advertise br support.
// WebSocket upgrades pass through untouched — the handshake fails if the
// response is wrapped.
func Brotli() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Content-Encoding", "br")
		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			writer:         brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression),
		}
		defer func() {
			c.Header("Content-Length", "")
			_ = bw.writer.Close()
		}()

		c.Writer = bw
		c.Next()
	}
}

func acceptsBrotli(r *http.Request) bool {
	ae := r.Header.Get("Accept-Encoding")
	for _, enc := range strings.Split(ae, ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
