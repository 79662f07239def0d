package middleware

import (
	"net/http"
	"os"
	"strings"
)

var defaultAllowed = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://infoneige.github.io",
	"https://carte.infoneige.ca",
	"https://planifneige.onrender.com",
}

// OriginsFromEnv reads extra allow-list entries from CORS_ORIGINS
// (comma-separated). Called from main after the env file is loaded, so
// origins configured through .env.local count too.
func OriginsFromEnv() []string {
	var origins []string
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// CORS builds the CORS middleware with the default allow-list plus any
// extra origins.
func CORS(extraOrigins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(defaultAllowed)+len(extraOrigins))
	for _, origin := range defaultAllowed {
		allowed[origin] = struct{}{}
	}
	for _, origin := range extraOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Echo the origin back only if it’s on our allow-list
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Cache-Control, Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
