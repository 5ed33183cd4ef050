package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/broadcaster"
	"github.com/spooky-finn/okx-depth-bridge/domain"
	promclient "github.com/spooky-finn/okx-depth-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/okx-depth-bridge/provider/okx"
	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

type stubStream struct{}

func (stubStream) Connected() bool               { return false }
func (stubStream) State() okx.State              { return okx.StateConnecting }
func (stubStream) Events() []okx.ConnectionEvent { return nil }

type fixture struct {
	server      *httptest.Server
	book        *domain.OrderBook
	broadcaster *broadcaster.Broadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	book := domain.NewOrderBook()
	require.NoError(t, book.Update(
		[][]string{{"99", "1"}, {"98", "1"}},
		[][]string{{"100", "1"}, {"101", "2"}},
	))
	symbol, err := domain.NewMarketSymbolFromInstID("BTC-USDT")
	require.NoError(t, err)

	b := broadcaster.New(book, time.Hour, zap.NewNop())
	uc := usecase.NewMarketDepthUseCase(book, symbol, stubStream{}, b, decimal.NewFromInt(1))
	srv := NewServer(uc, b, promclient.Handler(promclient.NewRegistry()), time.Second, zap.NewNop())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, book: book, broadcaster: b}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServer_Status(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/status")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, false, status["okx_ws_connected"])
	assert.Equal(t, "connecting", status["state"])
	assert.Equal(t, float64(0), status["subscribers"])
}

func TestServer_Preflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/simulate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Simulate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"DefaultBuysOne", "", http.StatusOK, `{"side":"buy","quantity":1,"avg_price":100,"cost":100,"unfilled_qty":0}`},
		{"BuyWalksLevels", "?quantity=2", http.StatusOK, `{"side":"buy","quantity":2,"avg_price":100.5,"cost":201,"unfilled_qty":0}`},
		{"SellBeyondDepth", "?side=sell&quantity=4", http.StatusOK, `{"side":"sell","quantity":4,"avg_price":49.25,"cost":197,"unfilled_qty":2}`},
		{"InvalidQuantity", "?quantity=abc", http.StatusBadRequest, ""},
		{"NegativeQuantity", "?quantity=-1", http.StatusBadRequest, ""},
		{"InvalidSide", "?side=hold", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.get(t, "/simulate"+tt.query)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, string(body))
			} else {
				assert.Contains(t, string(body), `"error"`)
			}
		})
	}
}

func TestServer_OrderBook(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/orderbook?depth=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot struct {
		InstID string      `json:"instId"`
		Bids   [][]float64 `json:"bids"`
		Asks   [][]float64 `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, "BTC-USDT", snapshot.InstID)
	assert.Equal(t, [][]float64{{99, 1}}, snapshot.Bids)
	assert.Equal(t, [][]float64{{100, 1}}, snapshot.Asks)

	resp, _ = f.get(t, "/orderbook")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.get(t, "/orderbook?depth=-3")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "okx_ws_connected")
}

func TestServer_UnknownRouteAndMethod(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err := http.Post(f.server.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_OrderBookStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/orderbook"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.broadcaster.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.broadcaster.BroadcastOnce(context.Background())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bid":[99,1],"ask":[100,1]}`, string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ignored")))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return f.broadcaster.Len() == 0 }, 2*time.Second, 10*time.Millisecond,
		"a disconnected client is unregistered")
}

func TestServer_ServeStopsWithContext(t *testing.T) {
	f := newFixture(t)
	srv := NewServer(nil, f.broadcaster, nil, time.Second, zap.NewNop())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
