package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farmacia/m/internal/cart"
	"farmacia/m/internal/logger"
	"farmacia/m/internal/pharmacy"
	"farmacia/m/internal/store"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	svc           *pharmacy.Service
	log           *zap.Logger
	gatherer      prometheus.Gatherer
	allowedOrigin string
}

// New constructs a Handler. A nil gatherer serves the default registry.
func New(svc *pharmacy.Service, log *zap.Logger, gatherer prometheus.Gatherer, allowedOrigin string) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		svc:           svc,
		log:           logger.OrNop(log),
		gatherer:      gatherer,
		allowedOrigin: allowedOrigin,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{h.allowedOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/medications", func(r chi.Router) {
		r.Get("/", h.listMedications)
		r.Post("/", h.createMedication)
		r.Get("/{id}", h.getMedication)
		r.Put("/{id}", h.updateMedication)
		r.Delete("/{id}", h.deleteMedication)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Post("/", h.createSale)
		r.Delete("/{id}", h.deleteSale)
		r.Get("/{id}/receipt", h.saleReceipt)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.svc.Ready():
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

// respondServiceError maps a service error onto a status code. Internal
// details are logged, never returned.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var partial *store.PartialSaleError
	switch {
	case errors.As(err, &partial):
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "sale recorded without its lines",
			"sale_id": partial.SaleID,
		})
	case errors.Is(err, pharmacy.ErrInvalidMedication),
		errors.Is(err, pharmacy.ErrEmptyCart),
		errors.Is(err, store.ErrInvalidSale),
		errors.Is(err, cart.ErrAlreadyInCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInactiveMedication):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// Helpers
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
