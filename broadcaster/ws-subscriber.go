package broadcaster

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketSubscriber pushes text frames to a downstream websocket. Each push
// must finish within writeTimeout or the subscriber is considered dead.
type WebsocketSubscriber struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func NewWebsocketSubscriber(conn *websocket.Conn, writeTimeout time.Duration) *WebsocketSubscriber {
	return &WebsocketSubscriber{conn: conn, writeTimeout: writeTimeout}
}

func (s *WebsocketSubscriber) Push(ctx context.Context, payload []byte) error {
	deadline := time.Now().Add(s.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *WebsocketSubscriber) Close() error {
	return s.conn.Close()
}
