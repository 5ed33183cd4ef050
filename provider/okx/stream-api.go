package okx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spooky-finn/okx-depth-bridge/domain"
	promclient "github.com/spooky-finn/okx-depth-bridge/infrastructure/prometheus"
)

const (
	OpSubscribe = "subscribe"

	EventSubscribe = "subscribe"
	EventError     = "error"

	// ActionUpdate marks an incremental frame on the books channel; every other frame is a full snapshot.
	ActionUpdate = "update"
)

type SubscriptionArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type SubscribeRequest struct {
	Op   string            `json:"op"`
	Args []SubscriptionArg `json:"args"`
}

func NewSubscribeRequest(channel, instID string) SubscribeRequest {
	return SubscribeRequest{
		Op:   OpSubscribe,
		Args: []SubscriptionArg{{Channel: channel, InstID: instID}},
	}
}

// Message is one decoded frame of the public websocket. Event frames carry
// Event/Code/Msg; push frames carry Arg and Data.
type Message struct {
	Event  string           `json:"event,omitempty"`
	Code   string           `json:"code,omitempty"`
	Msg    string           `json:"msg,omitempty"`
	Arg    *SubscriptionArg `json:"arg,omitempty"`
	Action string           `json:"action,omitempty"`
	Data   []DepthData      `json:"data"`
}

type DepthData struct {
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
	Ts        string     `json:"ts,omitempty"`
	Checksum  int64      `json:"checksum,omitempty"`
	SeqID     int64      `json:"seqId,omitempty"`
	PrevSeqID int64      `json:"prevSeqId,omitempty"`
}

func DecodeMessage(frame []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(frame, msg); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return msg, nil
}

// Handler consumes one push frame. The stream client calls it synchronously,
// so frames reach it one at a time in arrival order.
type Handler func(ctx context.Context, msg *Message) error

// NewDepthHandler applies every data element of a frame to the book. Processing
// stops at the first element the book rejects; the book keeps its prior state for it.
// A sequence gap on incremental updates is reported as ErrOutOfSequence.
func NewDepthHandler(book *domain.OrderBook, logger *zap.Logger, debug bool) Handler {
	logger = logger.Named("okx-depth-handler")
	one := decimal.NewFromInt(1)
	validator := &SequenceValidator{}

	return func(ctx context.Context, msg *Message) error {
		for i, data := range msg.Data {
			if err := validator.Validate(msg.Action, data); err != nil {
				validator.Reset()
				promclient.OrderBookUpdates.WithLabelValues("out_of_sequence").Inc()
				return err
			}

			var err error
			if msg.Action == ActionUpdate {
				err = book.ApplyDelta(data.Bids, data.Asks)
			} else {
				err = book.Update(data.Bids, data.Asks)
			}

			if err != nil {
				promclient.OrderBookUpdates.WithLabelValues("rejected").Inc()
				return fmt.Errorf("depth data %d rejected: %w", i, err)
			}
			validator.Applied(data)
			promclient.OrderBookUpdates.WithLabelValues("applied").Inc()

			if debug {
				top := book.TopOfBook()
				simulated := book.SimulateBuy(one)
				logger.Debug("top of book",
					zap.Any("best_bid", top.Bid),
					zap.Any("best_ask", top.Ask),
					zap.String("buy_1_avg_price", simulated.AveragePrice.StringFixed(2)),
					zap.String("buy_1_cost", simulated.TotalCost.StringFixed(2)),
				)
			}
		}
		return nil
	}
}
