package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local admin dev server
}

// CORS returns middleware that applies the admin API's allowed origin policy.
// An empty origins list falls back to the local dev server only when
// allowLocalFallback is set; production never allows it.
func CORS(origins []string, allowLocalFallback bool) func(http.Handler) http.Handler {
	if len(origins) == 0 && allowLocalFallback {
		origins = defaultCORSOrigins
	}
	var denyAll func(*http.Request, string) bool
	if len(origins) == 0 {
		// cors treats an empty list as "any origin".
		denyAll = func(*http.Request, string) bool { return false }
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowOriginFunc:  denyAll,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
