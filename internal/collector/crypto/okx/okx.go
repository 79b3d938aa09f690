package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akiyanov/levels/internal/core"
)

const (
	baseURL = "https://www.okx.com"

	// OKX caps candle responses at 300 rows per request
	pageLimit = 300
)

// OKX implements the crypto Provider interface for OKX exchange
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates a new OKX provider
func New() *OKX {
	return &OKX{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX provider with custom base URL (for testing)
func NewWithBaseURL(url string) *OKX {
	o := New()
	o.baseURL = url
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// toInstID converts exchange format to OKX instrument ID.
// BTCUSDT -> BTC-USDT
func (o *OKX) toInstID(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, quote := range []string{"USDT", "USDC", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote) + "-" + quote
		}
	}
	return s
}

// FetchDaily fetches daily candles from OKX. The endpoint returns newest
// rows first, so paging walks backwards from end until start is covered.
func (o *OKX) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error) {
	instID := o.toInstID(symbol)
	var bars []core.PriceBar

	// "after" asks for rows strictly older than the cursor
	cursor := end.AddDate(0, 0, 1)
	for {
		page, err := o.fetchPage(ctx, symbol, instID, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		oldest := page[len(page)-1].Date
		for _, bar := range page {
			if bar.Date.Before(start) || bar.Date.After(end) {
				continue
			}
			bars = append(bars, bar)
		}

		if !oldest.After(start) || len(page) < pageLimit {
			break
		}
		cursor = oldest
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// fetchPage returns candles older than the cursor, newest first.
func (o *OKX) fetchPage(ctx context.Context, symbol, instID string, cursor time.Time) ([]core.PriceBar, error) {
	url := fmt.Sprintf("%s/api/v5/market/history-candles?instId=%s&bar=1Dutc&after=%d&limit=%d",
		o.baseURL, instID, cursor.UnixMilli(), pageLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Code != "0" {
		return nil, fmt.Errorf("okx error: %s", result.Msg)
	}

	bars := make([]core.PriceBar, 0, len(result.Data))
	for _, candle := range result.Data {
		if len(candle) < 6 {
			continue
		}

		ts, _ := strconv.ParseInt(candle[0], 10, 64)
		open, _ := strconv.ParseFloat(candle[1], 64)
		high, _ := strconv.ParseFloat(candle[2], 64)
		low, _ := strconv.ParseFloat(candle[3], 64)
		closePrice, _ := strconv.ParseFloat(candle[4], 64)
		volume, _ := strconv.ParseFloat(candle[5], 64)

		bars = append(bars, core.PriceBar{
			Symbol: symbol,
			Date:   time.UnixMilli(ts).UTC().Truncate(24 * time.Hour),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars, nil
}

type candleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}
