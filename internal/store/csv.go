package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/akiyanov/levels/internal/core"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// EncodeBars serializes price bars to CSV with a header row.
func EncodeBars(bars []core.PriceBar) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, bar := range bars {
		record := []string{
			bar.Date.Format(dateLayout),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeBars parses CSV data into price bars sorted ascending by date.
// Malformed numeric fields are a hard error, not coerced.
func DecodeBars(symbol string, data []byte) ([]core.PriceBar, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Tolerate a missing header row in hand-edited files
	start := 0
	if records[0][0] == "date" {
		start = 1
	}

	bars := make([]core.PriceBar, 0, len(records)-start)
	for i, record := range records[start:] {
		if len(record) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 fields, got %d", i+start+1, len(record))
		}

		date, err := time.Parse(dateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+start+1, record[0], err)
		}

		var values [5]float64
		for j, field := range record[1:6] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing %s %q: %w", i+start+1, csvHeader[j+1], field, err)
			}
			values[j] = v
		}

		bars = append(bars, core.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FillGaps inserts synthetic bars for missing calendar days between
// consecutive bars. Synthetic closes are linearly interpolated between the
// neighbors and the volume sentinel marks them as placeholders until real
// data replaces them.
func FillGaps(bars []core.PriceBar) []core.PriceBar {
	if len(bars) < 2 {
		return bars
	}

	out := make([]core.PriceBar, 0, len(bars))
	out = append(out, bars[0])

	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		days := int(cur.Date.Sub(prev.Date).Hours() / 24)
		for d := 1; d < days; d++ {
			frac := float64(d) / float64(days)
			price := prev.Close + (cur.Close-prev.Close)*frac
			out = append(out, core.PriceBar{
				Symbol: cur.Symbol,
				Date:   prev.Date.AddDate(0, 0, d),
				Open:   price,
				High:   price,
				Low:    price,
				Close:  price,
				Volume: core.SyntheticVolume,
			})
		}
		out = append(out, cur)
	}

	return out
}
