package httputil

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// DecompressPayload adds a reader of the right type in case you need to
// decompress the body. Unknown encodings are passed through untouched.
func DecompressPayload(next http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		switch r.Header.Get("Content-Encoding") {
		case "br":
			r.Body = io.NopCloser(brotli.NewReader(r.Body))
		case "gzip":
			gr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "invalid gzip payload", http.StatusBadRequest)
				return
			}
			r.Body = gr
		case "lz4":
			r.Body = io.NopCloser(lz4.NewReader(r.Body))
		}

		next.ServeHTTP(w, r)
	})
}
