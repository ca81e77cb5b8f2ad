package http

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdResponseWriter compresses the body. The encoder is created on the
// first Write so bodiless responses (304, HEAD) stay empty.
type zstdResponseWriter struct {
	http.ResponseWriter
	encoder *zstd.Encoder
	err     error
}

func (w *zstdResponseWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.encoder == nil {
		w.Header().Del("Content-Length")
		w.encoder, w.err = zstd.NewWriter(w.ResponseWriter)
		if w.err != nil {
			return 0, w.err
		}
	}
	return w.encoder.Write(b)
}

func (w *zstdResponseWriter) close() error {
	if w.encoder == nil {
		return nil
	}
	return w.encoder.Close()
}

// zstdMiddleware compresses responses for clients that accept zstd.
func zstdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		// Only compress if client explicitly accepts zstd
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "zstd")
		zw := &zstdResponseWriter{ResponseWriter: w}
		defer zw.close()

		next.ServeHTTP(zw, r)
	})
}
