package domain

import (
	"fmt"
	"strings"
)

// MarketSymbol identifies the single instrument the bridge follows.
// Contract is the optional derivative suffix of a venue instrument id (SWAP, FUTURES).
type MarketSymbol struct {
	BaseAsset  string
	QuoteAsset string
	Contract   string
}

func NewMarketSymbol(base string, quote string) (*MarketSymbol, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return nil, fmt.Errorf("base and quote must not be empty")
	}
	if base == quote {
		return nil, fmt.Errorf("base and quote must be different")
	}
	return &MarketSymbol{
		BaseAsset:  base,
		QuoteAsset: quote,
	}, nil
}

// NewMarketSymbolFromInstID parses a dash separated instrument id such as
// BTC-USDT or BTC-USDT-SWAP.
func NewMarketSymbolFromInstID(instID string) (*MarketSymbol, error) {
	split := strings.Split(instID, "-")

	if len(split) < 2 || len(split) > 3 {
		return nil, fmt.Errorf("invalid instrument id %q", instID)
	}

	symbol, err := NewMarketSymbol(split[0], split[1])
	if err != nil {
		return nil, fmt.Errorf("invalid instrument id %q: %w", instID, err)
	}

	if len(split) == 3 {
		contract := strings.ToUpper(strings.TrimSpace(split[2]))
		if contract == "" {
			return nil, fmt.Errorf("invalid instrument id %q: empty contract", instID)
		}
		symbol.Contract = contract
	}

	return symbol, nil
}

func (ms *MarketSymbol) Join(separator string) string {
	return fmt.Sprintf("%s%s%s", ms.BaseAsset, separator, ms.QuoteAsset)
}

// InstID renders the symbol the way the venue expects it in subscription args.
func (ms *MarketSymbol) InstID() string {
	if ms.Contract == "" {
		return ms.Join("-")
	}
	return fmt.Sprintf("%s-%s", ms.Join("-"), ms.Contract)
}

func (ms *MarketSymbol) String() string {
	return ms.InstID()
}

func (ms *MarketSymbol) Equal(other *MarketSymbol) bool {
	return ms.BaseAsset == other.BaseAsset &&
		ms.QuoteAsset == other.QuoteAsset &&
		ms.Contract == other.Contract
}
