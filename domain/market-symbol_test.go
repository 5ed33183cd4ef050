package domain_test

import (
	"testing"

	"github.com/spooky-finn/okx-depth-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarketSymbol(t *testing.T) {
	tests := []struct {
		name        string
		base, quote string
		expectError bool
	}{
		{"ValidSymbol", "BTC", "USDT", false},
		{"EqualBaseQuote", "ETH", "ETH", true},
		{"EqualIgnoringCase", "eth", "ETH", true},
		{"EmptyBase", "", "USDT", true},
		{"EmptyQuote", "BTC", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewMarketSymbol(tt.base, tt.quote)

			if tt.expectError {
				assert.Error(t, err, "NewMarketSymbol() should return an error")
			} else {
				assert.NoError(t, err, "NewMarketSymbol() should not return an error")
			}
		})
	}
}

func TestNewMarketSymbolFromInstID(t *testing.T) {
	tests := []struct {
		name        string
		instID      string
		expected    string
		expectError bool
	}{
		{"Spot", "BTC-USDT", "BTC-USDT", false},
		{"Swap", "btc-usdt-swap", "BTC-USDT-SWAP", false},
		{"Underscore", "BTC_USDT", "", true},
		{"TooManyParts", "BTC-USDT-SWAP-X", "", true},
		{"EmptyContract", "BTC-USDT-", "", true},
		{"EmptyString", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbol, err := domain.NewMarketSymbolFromInstID(tt.instID)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, symbol.InstID())
		})
	}
}

func TestMarketSymbol_Join(t *testing.T) {
	ms := domain.MarketSymbol{BaseAsset: "BTC", QuoteAsset: "USDT"}

	assert.Equal(t, "BTC_USDT", ms.Join("_"), "Join() result should be equal to expected")
}

func TestMarketSymbol_Equal(t *testing.T) {
	ms1 := domain.MarketSymbol{BaseAsset: "BTC", QuoteAsset: "USDT"}
	ms2 := domain.MarketSymbol{BaseAsset: "BTC", QuoteAsset: "USDT"}
	ms3 := domain.MarketSymbol{BaseAsset: "BTC", QuoteAsset: "USDT", Contract: "SWAP"}

	assert.True(t, ms1.Equal(&ms2), "Equal() should return true for equal symbols")
	assert.False(t, ms1.Equal(&ms3), "Equal() should return false for different contracts")
}

func TestMarketSymbol_UppercaseConversion(t *testing.T) {
	ms, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	assert.Equal(t, "BTC-USDT", ms.String(), "String() result should be equal to expected")
}
