// Package api implements the Bock read API using chi.
package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxRefreshBody bounds webhook payloads read for signature checks.
const maxRefreshBody = 5 << 20

// RefreshAuthMiddleware guards the refresh endpoint. With a webhook secret,
// the X-Hub-Signature header must carry "sha1=<hex>" HMAC-SHA1 of the raw
// body. Otherwise the Authorization header must equal key. With neither
// configured the endpoint does not exist.
func RefreshAuthMiddleware(key, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case secret != "":
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRefreshBody))
				if err != nil {
					writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
					return
				}
				if !ValidSignature(secret, body, r.Header.Get("X-Hub-Signature")) {
					writeJSON(w, http.StatusUnauthorized, errorBody("invalid signature"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			case key != "":
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got == "" {
					writeJSON(w, http.StatusBadRequest, errorBody("refresh key is required"))
					return
				}
				if !hmac.Equal([]byte(got), []byte(key)) {
					writeJSON(w, http.StatusUnauthorized, errorBody("invalid key"))
					return
				}
			default:
				writeJSON(w, http.StatusNotFound, errorBody("refresh is not configured"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Signature returns the "sha1=<hex>" HMAC-SHA1 of body under secret.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether header is the signature of body under secret.
func ValidSignature(secret string, body []byte, header string) bool {
	return hmac.Equal([]byte(Signature(secret, body)), []byte(header))
}

func containsMediaType(accept, want string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == want {
			return true
		}
	}
	return false
}
