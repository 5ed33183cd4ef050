package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/broadcaster"
	"github.com/spooky-finn/okx-depth-bridge/domain"
	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

const shutdownTimeout = 5 * time.Second

type MarketDepthUseCase interface {
	Status() usecase.Status
	TopOfBook() domain.TopOfBook
	OrderBookSnapshot(limit int) *domain.OrderBookSnapshot
	Simulate(side string, quantity decimal.Decimal) (*usecase.Simulation, error)
	ParseQuantity(raw string) (decimal.Decimal, error)
}

type SubscriberRegistry interface {
	Add(sub broadcaster.Subscriber) uuid.UUID
	Remove(id uuid.UUID) bool
}

type Server struct {
	marketDepth  MarketDepthUseCase
	subscribers  SubscriberRegistry
	metrics      http.Handler
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	logger       *zap.Logger
}

func NewServer(
	marketDepth MarketDepthUseCase,
	subscribers SubscriberRegistry,
	metrics http.Handler,
	writeTimeout time.Duration,
	logger *zap.Logger,
) *Server {
	return &Server{
		marketDepth:  marketDepth,
		subscribers:  subscribers,
		metrics:      metrics,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("http"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /simulate", s.handleSimulate)
	mux.HandleFunc("GET /orderbook", s.handleOrderBook)
	mux.HandleFunc("GET /ws/orderbook", s.handleOrderBookStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return withCORS(withRequestLog(s.logger, mux))
}

// Serve blocks until ctx is done. Open websocket streams are closed with it.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("http server listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
