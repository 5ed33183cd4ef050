package domain

import (
	"errors"
	"fmt"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

var ErrMalformedLevel = errors.New("depth level must carry a price and a quantity")

// DepthLevel is one price level of a book side. Stored levels always have a positive quantity.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// MarshalJSON renders the level as a [price, quantity] pair of JSON numbers.
func (l DepthLevel) MarshalJSON() ([]byte, error) {
	return []byte("[" + l.Price.String() + "," + l.Quantity.String() + "]"), nil
}

// ParseError reports the first raw level of an update that could not be parsed.
type ParseError struct {
	Side  Side
	Index int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s level %d: invalid %s %q: %v", e.Side, e.Index, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseLevel(side Side, index int, raw []string) (decimal.Decimal, decimal.Decimal, error) {
	if len(raw) < 2 {
		return decimal.Zero, decimal.Zero, &ParseError{Side: side, Index: index, Field: "level", Value: fmt.Sprint(raw), Err: ErrMalformedLevel}
	}

	price, err := decimal.NewFromString(raw[0])
	if err != nil {
		return decimal.Zero, decimal.Zero, &ParseError{Side: side, Index: index, Field: "price", Value: raw[0], Err: err}
	}
	quantity, err := decimal.NewFromString(raw[1])
	if err != nil {
		return decimal.Zero, decimal.Zero, &ParseError{Side: side, Index: index, Field: "quantity", Value: raw[1], Err: err}
	}

	return price, quantity, nil
}

// depthTree keeps one side keyed by price: a later entry for the same price
// overwrites an earlier one and iteration yields best price first.
type depthTree struct {
	side Side
	tree *rbt.Tree
}

func newDepthTree(side Side, seed []DepthLevel) *depthTree {
	comparator := AskComparator
	if side == SideBid {
		comparator = BidComparator
	}

	t := &depthTree{side: side, tree: rbt.NewWith(comparator)}
	for _, level := range seed {
		t.tree.Put(level.Price, level.Quantity)
	}
	return t
}

// apply parses every raw entry before touching the tree so a malformed entry leaves it unchanged.
func (t *depthTree) apply(raw [][]string) error {
	parsed := make([]DepthLevel, 0, len(raw))
	for i, entry := range raw {
		price, quantity, err := parseLevel(t.side, i, entry)
		if err != nil {
			return err
		}
		parsed = append(parsed, DepthLevel{Price: price, Quantity: quantity})
	}

	for _, level := range parsed {
		if !level.Quantity.IsPositive() {
			t.tree.Remove(level.Price)
			continue
		}
		t.tree.Put(level.Price, level.Quantity)
	}
	return nil
}

func (t *depthTree) levels() []DepthLevel {
	levels := make([]DepthLevel, 0, t.tree.Size())
	it := t.tree.Iterator()
	for it.Next() {
		levels = append(levels, DepthLevel{
			Price:    it.Key().(decimal.Decimal),
			Quantity: it.Value().(decimal.Decimal),
		})
	}
	return levels
}

func AskComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

func BidComparator(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}
