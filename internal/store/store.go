package store

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/akiyanov/levels/internal/collector"
	"github.com/akiyanov/levels/internal/core"
	"github.com/akiyanov/levels/internal/storage/archive"
)

// PriceSeriesStore serves daily price history from an archive-backed CSV
// cache, refreshing missing ranges through a collector.
type PriceSeriesStore struct {
	archive   archive.Storage
	collector collector.Collector
	log       *zap.Logger
}

// New creates a price series store. The collector may be nil, in which case
// only cached data is served.
func New(st archive.Storage, c collector.Collector, log *zap.Logger) *PriceSeriesStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceSeriesStore{
		archive:   st,
		collector: c,
		log:       log,
	}
}

func cacheKey(symbol string) string {
	return "prices/" + symbol + ".csv"
}

// Load returns daily bars for a symbol covering [start, end], sorted
// ascending by date. Cached data is used where available; missing head or
// tail ranges are fetched through the collector, merged into the cache with
// real bars replacing synthetic ones, gap-filled, and persisted.
func (s *PriceSeriesStore) Load(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error) {
	cached, err := s.readCache(ctx, symbol)
	if err != nil {
		return nil, err
	}

	merged := cached
	dirty := false

	if s.collector != nil {
		for _, r := range missingRanges(cached, start, end) {
			s.log.Info("fetching price history",
				zap.String("symbol", symbol),
				zap.Time("start", r.start),
				zap.Time("end", r.end))

			fetched, err := s.collector.FetchDaily(ctx, symbol, r.start, r.end)
			if err != nil {
				// Serve stale cache if there is any, otherwise fail
				if len(cached) > 0 {
					s.log.Warn("fetch failed, serving cached data",
						zap.String("symbol", symbol), zap.Error(err))
					break
				}
				return nil, err
			}
			if len(fetched) > 0 {
				merged = mergeBars(merged, fetched)
				dirty = true
			}
		}
	}

	if dirty {
		merged = FillGaps(merged)
		if err := s.writeCache(ctx, symbol, merged); err != nil {
			s.log.Warn("persisting price cache failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}

	result := sliceRange(merged, start, end)
	if len(result) == 0 {
		return nil, core.ErrNoData
	}
	return result, nil
}

func (s *PriceSeriesStore) readCache(ctx context.Context, symbol string) ([]core.PriceBar, error) {
	key := cacheKey(symbol)
	ok, err := s.archive.Exists(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}
	if !ok {
		return nil, nil
	}

	data, err := s.archive.Read(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}
	bars, err := DecodeBars(symbol, data)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}
	return bars, nil
}

func (s *PriceSeriesStore) writeCache(ctx context.Context, symbol string, bars []core.PriceBar) error {
	data, err := EncodeBars(bars)
	if err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	if err := s.archive.Write(ctx, cacheKey(symbol), data); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	return nil
}

type dateRange struct {
	start, end time.Time
}

// missingRanges computes which parts of [start, end] the cache does not
// cover. Gaps inside the cached span are handled by synthetic fill, so only
// the head and tail matter.
func missingRanges(cached []core.PriceBar, start, end time.Time) []dateRange {
	if len(cached) == 0 {
		return []dateRange{{start: start, end: end}}
	}

	var ranges []dateRange
	first, last := cached[0].Date, cached[len(cached)-1].Date
	if start.Before(first) {
		ranges = append(ranges, dateRange{start: start, end: first.AddDate(0, 0, -1)})
	}
	if end.After(last) {
		ranges = append(ranges, dateRange{start: last.AddDate(0, 0, 1), end: end})
	}
	return ranges
}

// mergeBars combines cached and fetched bars. On date collisions a real bar
// always wins over a synthetic one and fetched data wins over cached.
func mergeBars(cached, fetched []core.PriceBar) []core.PriceBar {
	byDate := make(map[int64]core.PriceBar, len(cached)+len(fetched))
	for _, bar := range cached {
		byDate[bar.Date.Unix()] = bar
	}
	for _, bar := range fetched {
		if existing, ok := byDate[bar.Date.Unix()]; ok {
			if bar.IsSynthetic() && !existing.IsSynthetic() {
				continue
			}
		}
		byDate[bar.Date.Unix()] = bar
	}

	merged := make([]core.PriceBar, 0, len(byDate))
	for _, bar := range byDate {
		merged = append(merged, bar)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

func sliceRange(bars []core.PriceBar, start, end time.Time) []core.PriceBar {
	lo := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(start) })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(end) })
	if lo >= hi {
		return nil
	}
	return bars[lo:hi]
}
