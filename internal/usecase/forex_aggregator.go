package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
	applogger "UsagePrep/pkg/logger"
	"UsagePrep/pkg/util"
)

// ForexConfig holds candle and indicator parameters.
type ForexConfig struct {
	Pairs         []string
	EMAFast       int
	EMASlow       int
	ATRFast       int
	ATRSlow       int
	WindowBuckets int
}

// ForexAggregator converts raw bid/ask ticks into OHLC candles with EMA and
// ATR indicators at the three materialized timeframes. Each cycle recomputes
// a trailing window of buckets and reads extra lookback buckets so indicator
// recurrences re-seed without discontinuities.
type ForexAggregator struct {
	ticks   domrepo.TickReader
	store   domrepo.PreparedStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     ForexConfig
}

// NewForexAggregator creates the candle aggregator.
func NewForexAggregator(ticks domrepo.TickReader, store domrepo.PreparedStore, metrics domrepo.Metrics, log *applogger.Logger, cfg ForexConfig) *ForexAggregator {
	return &ForexAggregator{ticks: ticks, store: store, metrics: metrics, log: log, cfg: cfg}
}

func (a *ForexAggregator) Name() string { return "forex_ohlc" }

func (a *ForexAggregator) Run(ctx context.Context, now time.Time) (int, error) {
	var written int
	var errs []error
	for _, tf := range domrepo.Timeframes() {
		for _, pair := range a.cfg.Pairs {
			n, err := a.refreshPair(ctx, tf, pair, now)
			written += n
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", tf, pair, err))
			}
		}
	}
	return written, errors.Join(errs...)
}

func (a *ForexAggregator) refreshPair(ctx context.Context, tf domrepo.Timeframe, pair string, now time.Time) (int, error) {
	d := tf.Duration()
	windowStart := util.BucketRange(now, d, a.cfg.WindowBuckets)
	lookback := max(a.cfg.EMASlow, a.cfg.ATRSlow) + 1
	readFrom := windowStart.Add(-time.Duration(lookback) * d)

	seed, err := a.store.LastCandleBefore(ctx, tf, pair, readFrom)
	if err != nil {
		return 0, err
	}

	ticks, err := a.ticks.ReadTicks(ctx, pair, readFrom, now)
	if err != nil {
		return 0, err
	}

	var prevClose *float64
	if seed != nil {
		c := seed.Close
		prevClose = &c
	}
	bars := buildCandles(pair, ticks, d, readFrom, util.FloorTo(now, d), prevClose)
	if len(bars) == 0 {
		return 0, nil
	}
	applyIndicators(bars, a.cfg.EMAFast, a.cfg.EMASlow, a.cfg.ATRFast, a.cfg.ATRSlow)

	// Only the trailing window is written; the lookback bars exist solely to
	// warm the indicators back up.
	window := bars[:0:0]
	for _, b := range bars {
		if !b.BucketStart.Before(windowStart) {
			window = append(window, b)
		}
	}

	stats, err := a.store.UpsertCandles(ctx, tf, window)
	if err != nil {
		return 0, err
	}
	a.metrics.RecordRowsUpserted(tf.Table(), stats.Total())
	a.metrics.RecordRestatements(tf.Table(), stats.Restated)
	if stats.Restated > 0 {
		a.log.Info("candles restated from late ticks",
			applogger.String("table", tf.Table()),
			applogger.String("pair", pair),
			applogger.Int("rows", stats.Restated),
		)
	}
	return stats.Total(), nil
}

// buildCandles groups ticks into fixed-width buckets from `from` through
// `lastBucket` inclusive. Empty buckets carry the previous close forward as
// a flat candle; leading buckets with no close to carry are skipped.
func buildCandles(pair string, ticks []models.RawTick, d time.Duration, from, lastBucket time.Time, prevClose *float64) []models.OHLCBar {
	byBucket := make(map[time.Time][]models.RawTick)
	for _, t := range ticks {
		byBucket[util.FloorTo(t.Timestamp, d)] = append(byBucket[util.FloorTo(t.Timestamp, d)], t)
	}

	var bars []models.OHLCBar
	for bucket := from; !bucket.After(lastBucket); bucket = bucket.Add(d) {
		group := byBucket[bucket]
		if len(group) == 0 {
			if prevClose == nil {
				continue
			}
			c := *prevClose
			bars = append(bars, models.OHLCBar{
				Pair:        pair,
				BucketStart: bucket,
				Open:        c,
				High:        c,
				Low:         c,
				Close:       c,
			})
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		bar := models.OHLCBar{
			Pair:        pair,
			BucketStart: bucket,
			Open:        group[0].Mid(),
			High:        group[0].Mid(),
			Low:         group[0].Mid(),
			Close:       group[len(group)-1].Mid(),
		}
		for _, t := range group[1:] {
			mid := t.Mid()
			if mid > bar.High {
				bar.High = mid
			}
			if mid < bar.Low {
				bar.Low = mid
			}
		}
		bars = append(bars, bar)
		c := bar.Close
		prevClose = &c
	}
	return bars
}

// applyIndicators walks the bars chronologically and fills EMA and ATR in
// place. Values stay nil until the warm-up count is satisfied: EMA(p) seeds
// with the simple average of the first p closes, ATR(p) with the simple
// average of the first p true ranges, then both follow their recurrences
// (standard EMA smoothing and Wilder smoothing respectively).
func applyIndicators(bars []models.OHLCBar, emaFast, emaSlow, atrFast, atrSlow int) {
	emaF := newEMAState(emaFast)
	emaS := newEMAState(emaSlow)
	atrF := newATRState(atrFast)
	atrS := newATRState(atrSlow)

	for i := range bars {
		b := &bars[i]
		b.EMAFast = emaF.next(b.Close)
		b.EMASlow = emaS.next(b.Close)

		tr := b.High - b.Low
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = max(tr, abs(b.High-prevClose), abs(b.Low-prevClose))
		}
		b.ATRFast = atrF.next(tr)
		b.ATRSlow = atrS.next(tr)
	}
}

type emaState struct {
	period int
	k      float64
	seen   int
	sum    float64
	value  float64
}

func newEMAState(period int) *emaState {
	return &emaState{period: period, k: 2 / float64(period+1)}
}

func (s *emaState) next(close float64) *float64 {
	s.seen++
	if s.seen < s.period {
		s.sum += close
		return nil
	}
	if s.seen == s.period {
		s.sum += close
		s.value = s.sum / float64(s.period)
	} else {
		s.value = close*s.k + s.value*(1-s.k)
	}
	v := s.value
	return &v
}

type atrState struct {
	period int
	seen   int
	sum    float64
	value  float64
}

func newATRState(period int) *atrState {
	return &atrState{period: period}
}

func (s *atrState) next(tr float64) *float64 {
	s.seen++
	if s.seen < s.period {
		s.sum += tr
		return nil
	}
	if s.seen == s.period {
		s.sum += tr
		s.value = s.sum / float64(s.period)
	} else {
		s.value = (s.value*float64(s.period-1) + tr) / float64(s.period)
	}
	v := s.value
	return &v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
