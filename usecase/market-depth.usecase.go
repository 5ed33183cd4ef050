package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spooky-finn/okx-depth-bridge/domain"
	"github.com/spooky-finn/okx-depth-bridge/provider/okx"
)

var (
	ErrInvalidSide     = errors.New("side must be buy or sell")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative number")
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

type StreamStatus interface {
	Connected() bool
	State() okx.State
	Events() []okx.ConnectionEvent
}

type SubscriberCounter interface {
	Len() int
}

type Status struct {
	OKXConnected  bool                  `json:"okx_ws_connected"`
	State         okx.State             `json:"state"`
	InstID        string                `json:"instId"`
	BookUpdatedAt *time.Time            `json:"book_updated_at"`
	Subscribers   int                   `json:"subscribers"`
	Events        []okx.ConnectionEvent `json:"recent_events"`
}

type Simulation struct {
	Side string
	domain.FillSimulation
}

func (s Simulation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Side        string  `json:"side"`
		Quantity    float64 `json:"quantity"`
		AvgPrice    float64 `json:"avg_price"`
		Cost        float64 `json:"cost"`
		UnfilledQty float64 `json:"unfilled_qty"`
	}{
		Side:        s.Side,
		Quantity:    s.RequestedQuantity.InexactFloat64(),
		AvgPrice:    s.AveragePrice.InexactFloat64(),
		Cost:        s.TotalCost.InexactFloat64(),
		UnfilledQty: s.UnfilledQuantity.InexactFloat64(),
	})
}

// MarketDepthUseCase answers the read-only status, depth and simulation queries.
type MarketDepthUseCase struct {
	book            *domain.OrderBook
	symbol          *domain.MarketSymbol
	stream          StreamStatus
	subscribers     SubscriberCounter
	defaultQuantity decimal.Decimal
}

func NewMarketDepthUseCase(
	book *domain.OrderBook,
	symbol *domain.MarketSymbol,
	stream StreamStatus,
	subscribers SubscriberCounter,
	defaultQuantity decimal.Decimal,
) *MarketDepthUseCase {
	return &MarketDepthUseCase{
		book:            book,
		symbol:          symbol,
		stream:          stream,
		subscribers:     subscribers,
		defaultQuantity: defaultQuantity,
	}
}

func (u *MarketDepthUseCase) Status() Status {
	status := Status{
		OKXConnected: u.stream.Connected(),
		State:        u.stream.State(),
		InstID:       u.symbol.InstID(),
		Subscribers:  u.subscribers.Len(),
		Events:       u.stream.Events(),
	}

	if updatedAt := u.book.UpdatedAt(); !updatedAt.IsZero() {
		status.BookUpdatedAt = &updatedAt
	}
	return status
}

func (u *MarketDepthUseCase) TopOfBook() domain.TopOfBook {
	return u.book.TopOfBook()
}

func (u *MarketDepthUseCase) OrderBookSnapshot(limit int) *domain.OrderBookSnapshot {
	snapshot := u.book.TakeSnapshot(limit)
	snapshot.InstID = u.symbol.InstID()
	return snapshot
}

func (u *MarketDepthUseCase) DefaultQuantity() decimal.Decimal {
	return u.defaultQuantity
}

// Simulate projects a market order of the given quantity. An empty side means buy.
func (u *MarketDepthUseCase) Simulate(side string, quantity decimal.Decimal) (*Simulation, error) {
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}

	switch strings.ToLower(strings.TrimSpace(side)) {
	case "", SideBuy:
		return &Simulation{Side: SideBuy, FillSimulation: u.book.SimulateBuy(quantity)}, nil
	case SideSell:
		return &Simulation{Side: SideSell, FillSimulation: u.book.SimulateSell(quantity)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
}

// ParseQuantity parses a user supplied quantity, falling back to the default when raw is empty.
func (u *MarketDepthUseCase) ParseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return u.defaultQuantity, nil
	}

	quantity, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	if quantity.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return quantity, nil
}
