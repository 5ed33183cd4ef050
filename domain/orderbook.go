package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type OrderBookSnapshot struct {
	InstID    string       `json:"instId,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Bids      []DepthLevel `json:"bids"`
	Asks      []DepthLevel `json:"asks"`
}

// TopOfBook holds the best level of each side. A nil level means the side is empty.
type TopOfBook struct {
	Bid *DepthLevel `json:"bid"`
	Ask *DepthLevel `json:"ask"`
}

// FillSimulation is the projected outcome of a market order walking one side of the book.
type FillSimulation struct {
	RequestedQuantity decimal.Decimal
	AveragePrice      decimal.Decimal
	TotalCost         decimal.Decimal
	UnfilledQuantity  decimal.Decimal
}

// OrderBook is the consolidated depth of one instrument.
// Bids are kept strictly descending by price, asks strictly ascending.
// Both sides are swapped under a single write lock, so readers never observe
// a bid side from one update paired with an ask side from another.
type OrderBook struct {
	mu        sync.RWMutex
	bids      []DepthLevel
	asks      []DepthLevel
	updatedAt time.Time
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: []DepthLevel{},
		asks: []DepthLevel{},
	}
}

// Update replaces both sides wholesale with the supplied levels. Entries with a
// non-positive quantity are dropped. If any entry fails to parse the book is left untouched.
func (ob *OrderBook) Update(rawBids, rawAsks [][]string) error {
	bids := newDepthTree(SideBid, nil)
	if err := bids.apply(rawBids); err != nil {
		return err
	}
	asks := newDepthTree(SideAsk, nil)
	if err := asks.apply(rawAsks); err != nil {
		return err
	}

	ob.replace(bids.levels(), asks.levels())
	return nil
}

// ApplyDelta merges the supplied levels into the current sides: a positive
// quantity sets the level, zero removes it. It is all-or-nothing like Update.
func (ob *OrderBook) ApplyDelta(rawBids, rawAsks [][]string) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	bids := newDepthTree(SideBid, ob.bids)
	if err := bids.apply(rawBids); err != nil {
		return err
	}
	asks := newDepthTree(SideAsk, ob.asks)
	if err := asks.apply(rawAsks); err != nil {
		return err
	}

	ob.bids = bids.levels()
	ob.asks = asks.levels()
	ob.updatedAt = time.Now()
	return nil
}

func (ob *OrderBook) replace(bids, asks []DepthLevel) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.bids = bids
	ob.asks = asks
	ob.updatedAt = time.Now()
}

// BestBidAsk returns the top level of each side, or nil for an empty side.
func (ob *OrderBook) BestBidAsk() (bid, ask *DepthLevel) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	if len(ob.bids) > 0 {
		top := ob.bids[0]
		bid = &top
	}
	if len(ob.asks) > 0 {
		top := ob.asks[0]
		ask = &top
	}
	return bid, ask
}

func (ob *OrderBook) TopOfBook() TopOfBook {
	bid, ask := ob.BestBidAsk()
	return TopOfBook{Bid: bid, Ask: ask}
}

func (ob *OrderBook) Bids() []DepthLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return append([]DepthLevel(nil), ob.bids...)
}

func (ob *OrderBook) Asks() []DepthLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return append([]DepthLevel(nil), ob.asks...)
}

// UpdatedAt is the zero time until the first successful update.
func (ob *OrderBook) UpdatedAt() time.Time {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.updatedAt
}

// TakeSnapshot copies up to limit levels per side; limit <= 0 copies everything.
func (ob *OrderBook) TakeSnapshot(limit int) *OrderBookSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bids := limitDepth(ob.bids, limit)
	asks := limitDepth(ob.asks, limit)

	return &OrderBookSnapshot{
		UpdatedAt: ob.updatedAt,
		Bids:      append(make([]DepthLevel, 0, len(bids)), bids...),
		Asks:      append(make([]DepthLevel, 0, len(asks)), asks...),
	}
}

func limitDepth(depth []DepthLevel, limit int) []DepthLevel {
	if limit > 0 && len(depth) > limit {
		return depth[:limit]
	}

	return depth
}

// SimulateBuy consumes ask liquidity.
func (ob *OrderBook) SimulateBuy(quantity decimal.Decimal) FillSimulation {
	return ob.Simulate(SideAsk, quantity)
}

// SimulateSell consumes bid liquidity.
func (ob *OrderBook) SimulateSell(quantity decimal.Decimal) FillSimulation {
	return ob.Simulate(SideBid, quantity)
}

// Simulate walks the given side from the best price outward until quantity is
// consumed or the side runs out. The average price is cost divided by the
// requested quantity, not the filled one, so a partial fill reports the cost
// spread over the full notional.
func (ob *OrderBook) Simulate(side Side, quantity decimal.Decimal) FillSimulation {
	result := FillSimulation{
		RequestedQuantity: quantity,
		AveragePrice:      decimal.Zero,
		TotalCost:         decimal.Zero,
		UnfilledQuantity:  decimal.Zero,
	}
	if !quantity.IsPositive() {
		return result
	}

	ob.mu.RLock()
	levels := ob.asks
	if side == SideBid {
		levels = ob.bids
	}

	left := quantity
	for _, level := range levels {
		if !left.IsPositive() {
			break
		}
		traded := decimal.Min(level.Quantity, left)
		result.TotalCost = result.TotalCost.Add(traded.Mul(level.Price))
		left = left.Sub(traded)
	}
	ob.mu.RUnlock()

	result.UnfilledQuantity = left
	result.AveragePrice = result.TotalCost.Div(quantity)
	return result
}
