package webserver

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

type compressResponseWriter struct {
	http.ResponseWriter
	writer io.Writer
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

// CompressionMiddleware negotiates zstd or gzip response compression.
// Bundles are ZIPs and barely compress further, but the HTML, JSON errors
// and profile TOML do.
func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding := r.Header.Get("Accept-Encoding")

		var writer io.Writer

		switch {
		case strings.Contains(acceptEncoding, "zstd"):
			w.Header().Set("Content-Encoding", "zstd")
			encoder, _ := zstd.NewWriter(w,
				zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
				zstd.WithWindowSize(1<<23))
			defer encoder.Close()
			writer = encoder
		case strings.Contains(acceptEncoding, "gzip"):
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			writer = gz
		default:
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Del("Content-Length") // Can't know compressed size
		next.ServeHTTP(&compressResponseWriter{ResponseWriter: w, writer: writer}, r)
	})
}
