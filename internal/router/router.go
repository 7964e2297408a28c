package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jwols/nws-extract/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler is implemented by anything that registers routes on the router
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

// Router wraps the mux router with rate limiting and request logging
type Router struct {
	mux     *mux.Router
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewRouter(limiter *rate.Limiter, tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler) *Router {
	m := mux.NewRouter()
	r := &Router{
		mux:     m,
		limiter: limiter,
		logger:  logger.Named("router"),
	}

	m.Handle("/metrics", tel.Handler()).Methods("GET")
	m.HandleFunc("/healthz", r.handleHealth).Methods("GET")

	api := m.NewRoute().Subrouter()
	api.Use(r.rateLimitMiddleware, r.loggingMiddleware)
	for _, h := range handlers {
		h.RegisterRoutes(api, logger)
	}

	return r
}

// CreateServer creates an HTTP server bound to the router
func (r *Router) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (r *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		r.logger.Info("request handled",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
