package middleware

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// MinCompressSize is the smallest response body worth compressing when the
// handler declares a Content-Length.
const MinCompressSize = 512

var gzipPool = sync.Pool{New: func() any {
	w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
	return w
}}

var brotliPool = sync.Pool{New: func() any {
	return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression)
}}

// NewCompressionHandler compresses responses with brotli or gzip, whichever
// the client prefers; brotli wins ties.
func NewCompressionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := negotiate(r.Header.Get("Accept-Encoding"))
		w.Header().Add("Vary", "Accept-Encoding")
		if enc == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		cw := &compressWriter{ResponseWriter: w, encoding: enc}
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}

func negotiate(accept string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "br" && name != "gzip" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		if q <= 0 {
			continue
		}
		if q > bestQ || (q == bestQ && name == "br") {
			best, bestQ = name, q
		}
	}
	return best
}

type compressWriter struct {
	http.ResponseWriter
	encoding    string
	w           io.WriteCloser
	wroteHeader bool
	skip        bool
}

func (c *compressWriter) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	h := c.Header()
	if status < 200 || status == http.StatusNoContent || status == http.StatusNotModified || h.Get("Content-Encoding") != "" {
		c.skip = true
	} else if n, err := strconv.Atoi(h.Get("Content-Length")); err == nil && n < MinCompressSize {
		c.skip = true
	}
	if !c.skip {
		h.Del("Content-Length")
		h.Set("Content-Encoding", c.encoding)
		switch c.encoding {
		case "br":
			bw := brotliPool.Get().(*brotli.Writer)
			bw.Reset(c.ResponseWriter)
			c.w = bw
		case "gzip":
			gw := gzipPool.Get().(*gzip.Writer)
			gw.Reset(c.ResponseWriter)
			c.w = gw
		}
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.w == nil {
		return c.ResponseWriter.Write(p)
	}
	return c.w.Write(p)
}

func (c *compressWriter) Flush() {
	if f, ok := c.w.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (c *compressWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

func (c *compressWriter) Close() {
	if c.w == nil {
		return
	}
	_ = c.w.Close()
	switch w := c.w.(type) {
	case *brotli.Writer:
		w.Reset(io.Discard)
		brotliPool.Put(w)
	case *gzip.Writer:
		w.Reset(io.Discard)
		gzipPool.Put(w)
	}
	c.w = nil
}
