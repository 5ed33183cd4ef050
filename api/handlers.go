package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/broadcaster"
	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.marketDepth.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	quantity, err := s.marketDepth.ParseQuantity(query.Get("quantity"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	sim, err := s.marketDepth.Simulate(query.Get("side"), quantity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sim)
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "depth must be a non-negative integer"})
			return
		}
		depth = n
	}

	s.writeJSON(w, http.StatusOK, s.marketDepth.OrderBookSnapshot(depth))
}

// handleOrderBookStream registers the connection with the broadcaster and holds
// it open until the client goes away. Inbound messages are ignored.
func (s *Server) handleOrderBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := broadcaster.NewWebsocketSubscriber(conn, s.writeTimeout)
	id := s.subscribers.Add(sub)
	s.logger.Info("subscriber connected", zap.Stringer("id", id), zap.String("remote", r.RemoteAddr))

	stop := context.AfterFunc(r.Context(), func() { sub.Close() })
	defer func() {
		stop()
		s.subscribers.Remove(id)
		sub.Close()
		s.logger.Info("subscriber disconnected", zap.Stringer("id", id))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, usecase.ErrInvalidQuantity) || errors.Is(err, usecase.ErrInvalidSide) {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
