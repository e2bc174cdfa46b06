package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/tokenfolio/internal/metrics"
	"github.com/mtlprog/tokenfolio/internal/snapshot"
	"github.com/mtlprog/tokenfolio/internal/tracker"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// ServerDeps groups what the HTTP server needs. Snapshots, Metrics and Gatherer are optional.
type ServerDeps struct {
	Tracker     *tracker.Service
	Snapshots   *snapshot.Service
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	AdminAPIKey string
}

// NewRouter builds the route table.
func NewRouter(deps ServerDeps) http.Handler {
	handler := NewHandler(deps.Tracker, deps.Snapshots, deps.Metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/prices", handler.AddTokenPrice)
	mux.HandleFunc("GET /api/v1/prices", handler.GetAllTokenPrices)
	mux.HandleFunc("GET /api/v1/prices/{symbol}", handler.GetTokenPrice)
	mux.HandleFunc("PUT /api/v1/prices/{symbol}", handler.UpdatePrice)
	mux.HandleFunc("PUT /api/v1/balances/{token}", handler.UpdateBalance)
	mux.HandleFunc("GET /api/v1/balances", handler.GetBalances)
	mux.HandleFunc("GET /api/v1/portfolio", handler.GetPortfolioValue)
	mux.HandleFunc("GET /api/v1/snapshots", handler.ListSnapshots)

	saveHandler := http.HandlerFunc(handler.SaveSnapshot)
	if deps.AdminAPIKey != "" {
		mux.Handle("POST /api/v1/snapshots", requireAuth(deps.AdminAPIKey, saveHandler))
	} else {
		mux.Handle("POST /api/v1/snapshots", saveHandler)
	}

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return withRequestLog(mux)
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, deps ServerDeps) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		slog.Debug("http request",
			"requestId", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
