package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	promclient "github.com/spooky-finn/okx-depth-bridge/infrastructure/prometheus"
)

const (
	okxDefaultWebsocketEndpoint = "wss://ws.okx.com:8443/ws/v5/public"
	defaultReconnectBackoff     = 5 * time.Second
	defaultPingInterval         = 25 * time.Second
	defaultHandshakeTimeout     = 10 * time.Second
	maxFrameSize                = 1 << 20
	eventHistorySize            = 32

	pingFrame = "ping"
	pongFrame = "pong"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateFailed       State = "failed"
)

type ConnectionEvent struct {
	At    time.Time `json:"at"`
	State State     `json:"state"`
	Error string    `json:"error,omitempty"`
}

// Dialer is satisfied by *websocket.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type StreamConfig struct {
	URL              string
	Channel          string
	InstID           string
	ReconnectBackoff time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

// StreamClient keeps one subscription to the venue alive and feeds every
// decoded push frame to its handler.
type StreamClient struct {
	cfg     StreamConfig
	handler Handler
	dialer  Dialer
	logger  *zap.Logger

	connected atomic.Bool

	mu     sync.Mutex
	state  State
	events deque.Deque[ConnectionEvent]
}

func NewStreamClient(cfg StreamConfig, handler Handler, logger *zap.Logger) *StreamClient {
	if cfg.URL == "" {
		cfg.URL = okxDefaultWebsocketEndpoint
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = defaultReconnectBackoff
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	return &StreamClient{
		cfg:     cfg,
		handler: handler,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.Named("okx-stream-client"),
		state:  StateDisconnected,
	}
}

func (c *StreamClient) SetDialer(d Dialer) {
	c.dialer = d
}

// Connected reports whether the client currently holds a subscribed connection.
func (c *StreamClient) Connected() bool {
	return c.connected.Load()
}

func (c *StreamClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Events returns the most recent state transitions, oldest first.
func (c *StreamClient) Events() []ConnectionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ConnectionEvent, c.events.Len())
	for i := 0; i < c.events.Len(); i++ {
		out[i] = c.events.At(i)
	}
	return out
}

// Run connects, subscribes and reads until ctx is done or a fatal error occurs.
// Transient failures are retried after the fixed backoff with no retry limit.
// A fatal error is returned wrapped in ErrStreamFailed.
func (c *StreamClient) Run(ctx context.Context) error {
	for {
		err := c.connect(ctx)

		if ctx.Err() != nil {
			c.transition(StateDisconnected, nil)
			return ctx.Err()
		}

		kind := Classify(err)
		if kind == KindFatal {
			c.transition(StateFailed, err)
			c.logger.Error("stream terminated", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrStreamFailed, err)
		}

		c.transition(StateDisconnected, err)
		promclient.OKXReconnects.WithLabelValues(kind.String()).Inc()
		c.logger.Warn("reconnecting after connection error",
			zap.Error(err),
			zap.Duration("backoff", c.cfg.ReconnectBackoff),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectBackoff):
		}
	}
}

func (c *StreamClient) connect(ctx context.Context) error {
	c.transition(StateConnecting, nil)
	c.logger.Info("connecting", zap.String("url", c.cfg.URL))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := c.subscribe(conn); err != nil {
		return err
	}
	c.transition(StateSubscribed, nil)

	activity := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	go c.keepAlive(conn, activity, done)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout())); err != nil {
			return err
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		select {
		case activity <- struct{}{}:
		default:
		}
		promclient.OKXFramesReceived.Inc()

		if err := c.dispatch(ctx, frame); err != nil {
			return err
		}
	}
}

// readTimeout leaves room for one unanswered ping before the connection is
// considered dead.
func (c *StreamClient) readTimeout() time.Duration {
	return 2 * c.cfg.PingInterval
}

func (c *StreamClient) subscribe(conn *websocket.Conn) error {
	req := NewSubscribeRequest(c.cfg.Channel, c.cfg.InstID)
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}

	c.logger.Info("subscription sent",
		zap.String("channel", c.cfg.Channel),
		zap.String("instId", c.cfg.InstID),
	)
	return nil
}

// dispatch returns an error only when the frame must end the connection.
func (c *StreamClient) dispatch(ctx context.Context, frame []byte) error {
	if string(frame) == pongFrame {
		return nil
	}

	msg, err := DecodeMessage(frame)
	if err != nil {
		promclient.OKXDecodeErrors.Inc()
		c.logger.Warn("dropping undecodable frame", zap.Error(err), zap.ByteString("frame", truncate(frame)))
		return nil
	}

	switch msg.Event {
	case "":
	case EventError:
		return &SubscribeError{Code: msg.Code, Msg: msg.Msg}
	case EventSubscribe:
		c.logger.Info("subscription acknowledged", zap.Any("arg", msg.Arg))
		return nil
	default:
		c.logger.Info("venue event", zap.String("event", msg.Event), zap.String("msg", msg.Msg))
		return nil
	}

	if msg.Arg == nil || msg.Data == nil {
		c.logger.Warn("unexpected message format", zap.ByteString("frame", truncate(frame)))
		return nil
	}

	if err := c.handler(ctx, msg); err != nil {
		if errors.Is(err, ErrOutOfSequence) {
			return err
		}
		c.logger.Warn("handler rejected message", zap.Error(err))
	}
	return nil
}

// keepAlive sends a text ping once the connection has been silent for a full
// interval; the venue drops idle connections after 30s. Every inbound frame,
// pongs included, re-arms the timer.
func (c *StreamClient) keepAlive(conn *websocket.Conn, activity <-chan struct{}, done <-chan struct{}) {
	timer := time.NewTimer(c.cfg.PingInterval)
	defer timer.Stop()

	for {
		select {
		case <-done:
			return
		case <-activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.cfg.PingInterval)
		case <-timer.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Warn("failed to send ping", zap.Error(err))
				}
				return
			}
			timer.Reset(c.cfg.PingInterval)
		}
	}
}

func (c *StreamClient) transition(state State, err error) {
	c.connected.Store(state == StateSubscribed)
	if state == StateSubscribed {
		promclient.OKXConnected.Set(1)
	} else {
		promclient.OKXConnected.Set(0)
	}

	event := ConnectionEvent{At: time.Now(), State: state}
	if err != nil {
		event.Error = err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	c.events.PushBack(event)
	for c.events.Len() > eventHistorySize {
		c.events.PopFront()
	}
}

func truncate(frame []byte) []byte {
	const limit = 256
	if len(frame) > limit {
		return frame[:limit]
	}
	return frame
}
