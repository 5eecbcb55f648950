// Package api exposes a read-only HTTP view of the trading core: order book
// snapshots, portfolio state, order listings, feed status and prometheus
// metrics. All mutation goes through the engine, never through HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/engine"
	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata"
	"github.com/rxtech-lab/argo-exchange/internal/orderbook"
	"github.com/rxtech-lab/argo-exchange/internal/position"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/internal/version"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

const defaultSnapshotDepth = 10

// Server serves the read-only API over gorilla/mux.
type Server struct {
	engine    *engine.TradingEngine
	books     *orderbook.Registry
	positions *position.Manager
	feed      *marketdata.Feed

	httpServer *http.Server
	listener   net.Listener

	log *logger.Logger
}

// NewServer wires the server to the core components.
func NewServer(eng *engine.TradingEngine, books *orderbook.Registry, positions *position.Manager, feed *marketdata.Feed, log *logger.Logger) *Server {
	return &Server{
		engine:    eng,
		books:     books,
		positions: positions,
		feed:      feed,
		log:       log,
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.clientVersionMiddleware)

	router.HandleFunc("/api/v1/orderbook/{symbol}", s.handleOrderBook).Methods("GET")
	router.HandleFunc("/api/v1/orderbook/{symbol}/quote", s.handleQuote).Methods("GET")
	router.HandleFunc("/api/v1/quotes", s.handleQuotes).Methods("GET")
	router.HandleFunc("/api/v1/portfolio", s.handlePortfolio).Methods("GET")
	router.HandleFunc("/api/v1/orders", s.handleOrders).Methods("GET")
	router.HandleFunc("/api/v1/trades", s.handleTrades).Methods("GET")
	router.HandleFunc("/api/v1/feed/status", s.handleFeedStatus).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

// clientVersionMiddleware rejects clients whose advertised version is not
// compatible with the core. Clients that send no version header are let
// through, as are development builds on either side.
func (s *Server) clientVersionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientVersion := r.Header.Get("X-Client-Version")
		if clientVersion != "" {
			if err := version.CheckVersionCompatibility(version.Version, clientVersion); err != nil {
				s.writeJSON(w, http.StatusUpgradeRequired, errorResponse{
					Code:    int(errors.ErrCodeInvalidParameter),
					Message: err.Error(),
				})

				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Start begins serving on the address. Pass ":0" for a random port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.log.Info("API server started", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the bound listen address.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	depth := defaultSnapshotDepth

	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, errors.Newf(errors.ErrCodeInvalidDepth, "invalid depth: %s", raw))

			return
		}

		depth = parsed
	}

	book, err := s.books.Get(symbol)
	if err != nil {
		s.writeError(w, err)

		return
	}

	snapshot, err := book.GetSnapshot(depth)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	book, err := s.books.Get(symbol)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, book.GetQuote())
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.books.Quotes())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.positions.GetPortfolioSummary())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := engine.OrderFilter{
		Symbol: query.Get("symbol"),
		Status: types.OrderStatus(query.Get("status")),
		Side:   types.OrderSide(query.Get("side")),
	}

	s.writeJSON(w, http.StatusOK, s.engine.GetOrders(filter))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit: %s", raw))

			return
		}

		limit = parsed
	}

	s.writeJSON(w, http.StatusOK, s.positions.GetTradeHistory(limit))
}

func (s *Server) handleFeedStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.feed.Status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeError maps the error code to an HTTP status: validation codes become
// 400, not-found codes become 404, everything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.IsValidation(err):
		status = http.StatusBadRequest
	case errors.HasCode(err, errors.ErrCodeBookNotFound),
		errors.HasCode(err, errors.ErrCodeOrderNotFound),
		errors.HasCode(err, errors.ErrCodeDataNotFound):
		status = http.StatusNotFound
	}

	s.writeJSON(w, status, errorResponse{
		Code:    int(errors.GetCode(err)),
		Message: err.Error(),
	})
}
