package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthgrpc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/spooky-finn/okx-depth-bridge/domain"
	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

type MarketDepthUseCase interface {
	Status() usecase.Status
	TopOfBook() domain.TopOfBook
	OrderBookSnapshot(limit int) *domain.OrderBookSnapshot
	Simulate(side string, quantity decimal.Decimal) (*usecase.Simulation, error)
	ParseQuantity(raw string) (decimal.Decimal, error)
	DefaultQuantity() decimal.Decimal
}

type server struct {
	marketDepth MarketDepthUseCase
}

// Server hosts the MarketDepth service next to the standard health service.
type Server struct {
	grpc   *grpc.Server
	health *healthgrpc.Server
	logger *zap.Logger
}

func NewServer(marketDepth MarketDepthUseCase, logger *zap.Logger, debug bool) *Server {
	logger = logger.Named("rpc")

	s := &Server{
		grpc:   grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger))),
		health: healthgrpc.NewServer(),
		logger: logger,
	}

	RegisterMarketDepthServer(s.grpc, &server{marketDepth: marketDepth})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if debug {
		reflection.Register(s.grpc)
	}
	return s
}

// Serve blocks until ctx is done, then drains in-flight calls.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
	defer stop()

	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return ctx.Err()
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))
			logger.Warn("rpc failed", fields...)
		} else {
			logger.Debug("rpc served", fields...)
		}
		return resp, err
	}
}
