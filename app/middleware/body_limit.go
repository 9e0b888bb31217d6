package middleware

import (
	"net/http"
	"os"
	"strconv"
)

const defaultMaxBodyBytes = 1 << 20 // 1MB

// BodyLimit creates middleware that caps request body size. Bodies that
// declare a larger Content-Length are rejected up front; bodies without one
// are cut off by MaxBytesReader during decoding.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"request body too large","code":"PAYLOAD_TOO_LARGE"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimitFromEnv reads the cap from REQUEST_BODY_MAX_SIZE (bytes).
func BodyLimitFromEnv() func(http.Handler) http.Handler {
	maxBytes := int64(defaultMaxBodyBytes)
	if s := os.Getenv("REQUEST_BODY_MAX_SIZE"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			maxBytes = v
		}
	}
	return BodyLimit(maxBytes)
}
