package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spooky-finn/okx-depth-bridge/api"
	"github.com/spooky-finn/okx-depth-bridge/broadcaster"
	"github.com/spooky-finn/okx-depth-bridge/config"
	"github.com/spooky-finn/okx-depth-bridge/domain"
	promclient "github.com/spooky-finn/okx-depth-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/okx-depth-bridge/provider/okx"
	"github.com/spooky-finn/okx-depth-bridge/rpc"
	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

// Coordinator owns the single order book and runs every task that reads or
// writes it: the venue stream, the broadcaster and both query servers.
type Coordinator struct {
	cfg    *config.Config
	logger *zap.Logger

	book        *domain.OrderBook
	stream      *okx.StreamClient
	broadcaster *broadcaster.Broadcaster
	http        *api.Server
	rpc         *rpc.Server
}

func NewCoordinator(cfg *config.Config, logger *zap.Logger) (*Coordinator, error) {
	symbol, err := domain.NewMarketSymbolFromInstID(cfg.OKX.InstID)
	if err != nil {
		return nil, fmt.Errorf("invalid instrument: %w", err)
	}

	book := domain.NewOrderBook()

	stream := okx.NewStreamClient(okx.StreamConfig{
		URL:              cfg.OKX.URL,
		Channel:          cfg.OKX.Channel,
		InstID:           symbol.InstID(),
		ReconnectBackoff: cfg.OKX.ReconnectBackoff,
		PingInterval:     cfg.OKX.PingInterval,
		HandshakeTimeout: cfg.OKX.HandshakeTimeout,
	}, okx.NewDepthHandler(book, logger, cfg.DebugMode), logger)

	bc := broadcaster.New(book, cfg.Broadcast.Interval, logger)
	marketDepth := usecase.NewMarketDepthUseCase(book, symbol, stream, bc, cfg.SimulateDefaultQuantity)
	metrics := promclient.Handler(promclient.NewRegistry())

	return &Coordinator{
		cfg:         cfg,
		logger:      logger.Named("coordinator"),
		book:        book,
		stream:      stream,
		broadcaster: bc,
		http:        api.NewServer(marketDepth, bc, metrics, cfg.Broadcast.WriteTimeout, logger),
		rpc:         rpc.NewServer(marketDepth, logger, cfg.DebugMode),
	}, nil
}

func (c *Coordinator) Book() *domain.OrderBook {
	return c.book
}

func (c *Coordinator) Stream() *okx.StreamClient {
	return c.stream
}

// Run listens on the configured addresses and blocks until ctx is done or a task fails.
func (c *Coordinator) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", c.cfg.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.cfg.Server.HTTPAddr, err)
	}

	grpcLis, err := net.Listen("tcp", c.cfg.Server.GRPCAddr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", c.cfg.Server.GRPCAddr, err)
	}

	return c.Serve(ctx, httpLis, grpcLis)
}

// Serve runs all tasks on the given listeners. Cancellation of ctx is a clean
// shutdown and returns nil.
func (c *Coordinator) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ignoreCanceled(gctx, c.superviseStream(gctx)) })
	g.Go(func() error { return ignoreCanceled(gctx, c.broadcaster.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(gctx, c.http.Serve(gctx, httpLis)) })
	g.Go(func() error { return ignoreCanceled(gctx, c.rpc.Serve(gctx, grpcLis)) })

	c.logger.Info("started",
		zap.String("instId", c.cfg.OKX.InstID),
		zap.String("channel", c.cfg.OKX.Channel),
		zap.String("http", httpLis.Addr().String()),
		zap.String("grpc", grpcLis.Addr().String()),
	)

	err := g.Wait()
	c.logger.Info("stopped", zap.Error(err))
	return err
}

// superviseStream restarts the stream client after RestartDelay whenever it
// gives up with a fatal error. The book keeps its last state meanwhile.
func (c *Coordinator) superviseStream(ctx context.Context) error {
	for {
		err := c.stream.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("okx stream stopped, scheduling restart",
			zap.Error(err),
			zap.Duration("delay", c.cfg.OKX.RestartDelay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.OKX.RestartDelay):
		}
	}
}

func ignoreCanceled(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
