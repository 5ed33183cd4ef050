package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/spooky-finn/okx-depth-bridge/config"
	"github.com/spooky-finn/okx-depth-bridge/provider/okx"
	"github.com/spooky-finn/okx-depth-bridge/rpc"
)

// venue serves the okx subscription protocol; script runs after the subscribe
// request of the n-th connection has been read.
func venue(t *testing.T, script func(n int, conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()

	var handshakes atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(handshakes.Add(1))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req okx.SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		script(n, conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), &handshakes
}

func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func depthFrame(bid, ask string) []byte {
	return []byte(fmt.Sprintf(
		`{"arg":{"channel":"books5","instId":"BTC-USDT"},"data":[{"bids":[["%s","2","0","1"]],"asks":[["%s","3","0","1"]],"ts":"1700000000000"}]}`,
		bid, ask,
	))
}

func testConfig(url string) *config.Config {
	return &config.Config{
		OKX: config.OKXConfig{
			URL:              url,
			Channel:          "books5",
			InstID:           "BTC-USDT",
			ReconnectBackoff: 50 * time.Millisecond,
			PingInterval:     time.Minute,
			HandshakeTimeout: time.Second,
			RestartDelay:     50 * time.Millisecond,
		},
		Broadcast: config.BroadcastConfig{
			Interval:     20 * time.Millisecond,
			WriteTimeout: time.Second,
		},
		SimulateDefaultQuantity: decimal.NewFromInt(1),
	}
}

type running struct {
	httpURL  string
	grpcAddr string
	cancel   context.CancelFunc
	done     chan error
}

func start(t *testing.T, c *Coordinator) *running {
	t.Helper()

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		httpURL:  "http://" + httpLis.Addr().String(),
		grpcAddr: grpcLis.Addr().String(),
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() { r.done <- c.Serve(ctx, httpLis, grpcLis) }()
	return r
}

func (r *running) stop(t *testing.T) error {
	t.Helper()
	r.cancel()

	select {
	case err := <-r.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
		return nil
	}
}

func TestCoordinator_EndToEnd(t *testing.T) {
	url, _ := venue(t, func(n int, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, depthFrame("64000.5", "64001"))
		holdOpen(conn)
	})

	c, err := NewCoordinator(testConfig(url), zap.NewNop())
	require.NoError(t, err)
	r := start(t, c)

	require.Eventually(t, func() bool {
		bid, _ := c.Book().BestBidAsk()
		return bid != nil && c.Stream().Connected()
	}, 3*time.Second, 10*time.Millisecond)

	resp, err := http.Get(r.httpURL + "/status")
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, true, status["okx_ws_connected"])

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(r.httpURL, "http")+"/ws/orderbook", nil)
	require.NoError(t, err)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bid":[64000.5,2],"ask":[64001,3]}`, string(msg))

	conn, err := grpc.NewClient(r.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	top, err := rpc.NewMarketDepthClient(conn).GetTopOfBook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interface{}{64000.5, float64(2)}, top.GetFields()["bid"].GetListValue().AsSlice())

	assert.NoError(t, r.stop(t), "cancellation is a clean shutdown")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for err == nil {
		_, _, err = ws.ReadMessage()
	}
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "downstream streams are closed on shutdown")
}

func TestCoordinator_RestartsStreamAfterFatalError(t *testing.T) {
	url, handshakes := venue(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","code":"60018","msg":"Invalid instId"}`))
			holdOpen(conn)
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, depthFrame("100", "101"))
		holdOpen(conn)
	})

	c, err := NewCoordinator(testConfig(url), zap.NewNop())
	require.NoError(t, err)
	r := start(t, c)

	require.Eventually(t, func() bool {
		bid, _ := c.Book().BestBidAsk()
		return bid != nil
	}, 3*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, handshakes.Load(), int32(2))

	var failed bool
	for _, event := range c.Stream().Events() {
		if event.State == okx.StateFailed {
			failed = true
			assert.Contains(t, event.Error, "60018")
		}
	}
	assert.True(t, failed, "the fatal error is recorded before the restart")

	assert.NoError(t, r.stop(t))
}

func TestCoordinator_ListenFailureStopsEverything(t *testing.T) {
	url, _ := venue(t, func(n int, conn *websocket.Conn) { holdOpen(conn) })

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig(url)
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Server.GRPCAddr = taken.Addr().String()

	c, err := NewCoordinator(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Run(context.Background())
	assert.ErrorContains(t, err, "failed to listen")
}

func TestNewCoordinator_RejectsInvalidInstrument(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	cfg.OKX.InstID = "BTCUSDT"

	_, err := NewCoordinator(cfg, zap.NewNop())

	assert.Error(t, err)
}
