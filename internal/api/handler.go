package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokenfolio/internal/domain"
	"github.com/mtlprog/tokenfolio/internal/metrics"
	"github.com/mtlprog/tokenfolio/internal/snapshot"
	"github.com/mtlprog/tokenfolio/internal/tracker"
)

const maxBodyBytes = 1 << 20

// CallerHeader carries the caller identity supplied by the hosting environment.
const CallerHeader = "X-Caller-ID"

// Handler provides HTTP endpoints for the tracker API.
type Handler struct {
	tracker   *tracker.Service
	snapshots *snapshot.Service
	metrics   *metrics.Collector
}

// NewHandler creates a new API handler. snapshots and collector may be nil.
func NewHandler(t *tracker.Service, snapshots *snapshot.Service, collector *metrics.Collector) *Handler {
	return &Handler{tracker: t, snapshots: snapshots, metrics: collector}
}

type addPriceRequest struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type updatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type updateBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type priceRecordResponse struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// AddTokenPrice handles POST /api/v1/prices.
func (h *Handler) AddTokenPrice(w http.ResponseWriter, r *http.Request) {
	var req addPriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.tracker.AddTokenPrice(req.Symbol, req.Price)
	h.metrics.Observe("addTokenPrice", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, priceRecordResponse{
		Symbol:        req.Symbol,
		Price:         rec.Price(),
		CreatedAt:     rec.CreatedAt,
		LastUpdatedAt: rec.LastUpdatedAt,
	})
}

// UpdatePrice handles PUT /api/v1/prices/{symbol}.
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.tracker.UpdatePrice(r.PathValue("symbol"), req.Price)
	h.metrics.Observe("updatePrice", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTokenPrice handles GET /api/v1/prices/{symbol}.
func (h *Handler) GetTokenPrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	p, err := h.tracker.GetTokenPrice(symbol)
	h.metrics.Observe("getTokenPrice", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.TokenPrice{Symbol: symbol, Price: p})
}

// GetAllTokenPrices handles GET /api/v1/prices.
func (h *Handler) GetAllTokenPrices(w http.ResponseWriter, _ *http.Request) {
	prices := h.tracker.GetAllTokenPrices()
	h.metrics.Observe("getAllTokenPrices", nil)
	writeJSON(w, http.StatusOK, prices)
}

// UpdateBalance handles PUT /api/v1/balances/{token}.
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateBalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.tracker.UpdateBalance(caller, r.PathValue("token"), req.Amount)
	h.metrics.Observe("updateBalance", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances handles GET /api/v1/balances.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	balances := h.tracker.GetBalances(caller)
	h.metrics.Observe("getBalances", nil)
	writeJSON(w, http.StatusOK, balances)
}

// GetPortfolioValue handles GET /api/v1/portfolio.
func (h *Handler) GetPortfolioValue(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	v := h.tracker.GetPortfolioValue(caller)
	h.metrics.Observe("getPortfolioValue", nil)
	writeJSON(w, http.StatusOK, v)
}

// SaveSnapshot handles POST /api/v1/snapshots.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}
	snap, err := h.snapshots.Save(r.Context())
	h.metrics.Observe("saveSnapshot", err)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /api/v1/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	snapshots, err := h.snapshots.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snapshots == nil {
		snapshots = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get(CallerHeader))
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("unexpected tracker error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
