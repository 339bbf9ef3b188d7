package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/whale"
)

// Service is the part of the monitor exposed over HTTP
type Service interface {
	Check(ctx context.Context) (*monitor.Report, error)
	Prices(ctx context.Context) []monitor.PriceQuote
	Stats() monitor.Stats
	SetThreshold(ctx context.Context, asset whale.Asset, usd decimal.Decimal) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves health, metrics and the whale endpoints
type Server struct {
	service    Service
	db         Pinger // optional
	adminToken string
	log        *logrus.Logger
}

// New creates a server. db may be nil; an empty adminToken leaves
// threshold updates unauthenticated.
func New(service Service, db Pinger, adminToken string, log *logrus.Logger) *Server {
	return &Server{
		service:    service,
		db:         db,
		adminToken: adminToken,
		log:        log,
	}
}

// Handler returns the routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /whales/check", s.handleCheck)
	mux.HandleFunc("GET /whales/prices", s.handlePrices)
	mux.HandleFunc("GET /whales/stats", s.handleStats)
	mux.HandleFunc("GET /whales/config", s.handleGetConfig)
	mux.HandleFunc("POST /whales/config", s.requireAdmin(s.handleSetConfig))

	return mux
}

// ListenAndServe runs the server until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // /whales/check polls every source
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.WithField("port", port).Info("Starting HTTP server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			metrics.RecordHealthCheck(false)
			s.log.WithError(err).Warn("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Check(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Whale check failed")
		writeError(w, http.StatusInternalServerError, "whale check failed")
		return
	}
	writeJSON(w, http.StatusOK, newReportView(report))
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPricesView(s.service.Prices(r.Context())))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatsView(s.service.Stats()))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newConfigView(s.service.Stats().Thresholds))
}

// configRequest accepts numbers or strings; commas are allowed in strings ("1,000,000")
type configRequest struct {
	BTCThresholdUSD *flexDecimal `json:"btc_threshold_usd"`
	ETHThresholdUSD *flexDecimal `json:"eth_threshold_usd"`
}

type thresholdUpdate struct {
	asset whale.Asset
	usd   decimal.Decimal
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	var updates []thresholdUpdate
	if req.BTCThresholdUSD != nil {
		updates = append(updates, thresholdUpdate{whale.AssetBTC, req.BTCThresholdUSD.Decimal})
	}
	if req.ETHThresholdUSD != nil {
		updates = append(updates, thresholdUpdate{whale.AssetETH, req.ETHThresholdUSD.Decimal})
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no threshold given")
		return
	}

	// reject the whole request before applying any part of it
	for _, u := range updates {
		if u.usd.IsNegative() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s threshold must not be negative", u.asset))
			return
		}
	}

	for _, u := range updates {
		if err := s.service.SetThreshold(r.Context(), u.asset, u.usd); err != nil {
			if errors.Is(err, whale.ErrNegativeThreshold) || errors.Is(err, whale.ErrUnknownAsset) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.log.WithError(err).Error("Failed to update threshold")
			writeError(w, http.StatusInternalServerError, "failed to update threshold")
			return
		}
	}

	writeJSON(w, http.StatusOK, newConfigView(s.service.Stats().Thresholds))
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	if s.adminToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
