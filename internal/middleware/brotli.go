package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliWriter holds the body back until it reaches minLength. Shorter
// bodies are sent uncompressed when the handler returns.
type brotliWriter struct {
	gin.ResponseWriter
	pool      *sync.Pool
	enc       *brotli.Writer
	pending   []byte
	minLength int
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.enc != nil {
		return w.enc.Write(data)
	}
	w.pending = append(w.pending, data...)
	if len(w.pending) < w.minLength || !compressible(w.Header().Get("Content-Type")) {
		return len(data), nil
	}

	h := w.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.enc = w.pool.Get().(*brotli.Writer)
	w.enc.Reset(w.ResponseWriter)

	if _, err := w.enc.Write(w.pending); err != nil {
		return 0, err
	}
	w.pending = nil
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush pushes whatever is buffered to the client.
func (w *brotliWriter) Flush() {
	if w.enc != nil {
		_ = w.enc.Flush()
	} else if len(w.pending) > 0 {
		_, _ = w.ResponseWriter.Write(w.pending)
		w.pending = nil
	}
	w.ResponseWriter.Flush()
}

// finish completes the body and returns the encoder to the pool.
func (w *brotliWriter) finish() error {
	if w.enc == nil {
		if len(w.pending) == 0 {
			return nil
		}
		_, err := w.ResponseWriter.Write(w.pending)
		return err
	}
	err := w.enc.Close()
	w.pool.Put(w.enc)
	w.enc = nil
	return err
}

// Brotli compresses API responses for clients that send "Accept-Encoding: br".
// quality is clamped to 0-11; bodies shorter than minLength bytes go out
// uncompressed. WebSocket upgrades and event streams pass through untouched.
func Brotli(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = 1024
	}
	pool := &sync.Pool{New: func() any { return brotli.NewWriterLevel(nil, quality) }}

	return func(c *gin.Context) {
		if streaming(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, pool: pool, minLength: minLength}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

func streaming(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket") ||
		strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// compressible reports whether a body of this type benefits from compression.
// An unset type is treated as compressible.
func compressible(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case ct == "":
		return true
	case strings.HasPrefix(ct, "application/json"),
		strings.HasPrefix(ct, "text/"),
		strings.HasPrefix(ct, "application/javascript"):
		return true
	}
	return false
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
