package http

import (
	"log/slog"
	"net/http"
)

// NewServer registers the API routes and wraps them with request ID,
// logging and CORS middleware.
func NewServer(log *slog.Logger, h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", h.getFeed)
	mux.HandleFunc("GET /api/article", h.getArticle)
	mux.HandleFunc("GET /api/feeds", h.listFeeds)
	mux.HandleFunc("GET /api/archive", h.getArchive)
	mux.HandleFunc("POST /api/cache/clear", h.clearCache)
	mux.HandleFunc("GET /api/health", h.healthCheck)
	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = requestIDMiddleware()(handler)
	handler = corsMiddleware()(handler)
	return handler
}

func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
