package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Routes holds the optional handlers mounted next to the API.
type Routes struct {
	WebSocket http.HandlerFunc
	Negotiate http.HandlerFunc
	Watch     http.HandlerFunc
	Metrics   http.Handler
}

func NewRouter(server *Server, routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(zapLoggerMiddleware(logger))

	r.Get("/health", server.GetHealth)

	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}

	// Upgrade requests must not pass through the compressor
	if routes.WebSocket != nil {
		r.Get("/ws", routes.WebSocket)
	}
	if routes.Negotiate != nil {
		r.Get("/negotiate", routes.Negotiate)
	}
	// Event streams are flushed per event and stay uncompressed too
	if routes.Watch != nil {
		r.Get("/watch", routes.Watch)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Compress(5))

		api.Get("/tickers", server.GetTickers)
		api.Get("/expirations/{ticker}", server.GetExpirations)
		api.Get("/analysis/{ticker}", server.GetAnalysis)
		api.Get("/forecast/{ticker}", server.GetForecast)
		api.Post("/cache/reset", server.ResetCache)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}
