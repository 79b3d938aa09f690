package crypto

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input        string
		defaultQuote string
		want         string
	}{
		{"BTC", "USDT", "BTCUSDT"},
		{"btc", "USDT", "BTCUSDT"},
		{"BTC-USDT", "USDT", "BTCUSDT"},
		{"BTC/USDT", "USDT", "BTCUSDT"},
		{"btc_usdt", "USDT", "BTCUSDT"},
		{"btcusdt", "USDT", "BTCUSDT"},
		{"ETHBTC", "USDT", "ETHBTC"},
		{"SOL", "USDC", "SOLUSDC"},
		{"", "USDT", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.input, tt.defaultQuote); got != tt.want {
			t.Errorf("NormalizeSymbol(%q, %q) = %q, want %q", tt.input, tt.defaultQuote, got, tt.want)
		}
	}
}

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		symbol    string
		wantBase  string
		wantQuote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"SOLUSDC", "SOL", "USDC"},
	}
	for _, tt := range tests {
		base, quote := ParseSymbol(tt.symbol)
		if base != tt.wantBase || quote != tt.wantQuote {
			t.Errorf("ParseSymbol(%q) = (%q, %q), want (%q, %q)",
				tt.symbol, base, quote, tt.wantBase, tt.wantQuote)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"BTC", "BTC-USDT", "btc/usdt", "ETHUSDT"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "BTC USDT", "B!TC", "AVERYLONGSYMBOLNAMETHATGOESONANDONFOREVER"}
	for _, s := range invalid {
		if err := ValidateSymbol(s); err == nil {
			t.Errorf("ValidateSymbol(%q) = nil, want error", s)
		}
	}
}
