package middleware

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/PartsHole/internal/config"
)

// APIKeyHeader carries the client's key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests without a configured X-API-Key when
// RequireAPIKey is set. With RequireAPIKey set and no keys configured every
// request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	if !cfg.RequireAPIKey {
		return func(next http.Handler) http.Handler { return next }
	}

	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)

			status, code := 0, ""
			switch {
			case key == "":
				status, code = http.StatusUnauthorized, "AUTH_MISSING_KEY"
			case !matchesAny([]byte(key), keys):
				status, code = http.StatusForbidden, "AUTH_INVALID_KEY"
			}
			if status != 0 {
				slog.Warn("auth: request rejected",
					"code", code,
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, status, code)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchesAny compares against every key in constant time, so timing does not
// reveal which key matched or how far a guess got.
func matchesAny(key []byte, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(key, k)
	}
	return match == 1
}

func writeAuthError(w http.ResponseWriter, status int, code string) {
	msg := "missing API key"
	if status == http.StatusForbidden {
		msg = "invalid API key"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"message":%q,"action":"Send a valid %s header","code":%q}`, msg, msg, APIKeyHeader, code)
}
