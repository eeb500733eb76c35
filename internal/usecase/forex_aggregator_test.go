package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
	applogger "UsagePrep/pkg/logger"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func tick(pair string, ts time.Time, price float64) models.RawTick {
	return models.RawTick{Pair: pair, Timestamp: ts, Bid: price, Ask: price}
}

func TestForexAggregatorBuildsCandles(t *testing.T) {
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	now := base.Add(3*time.Minute + 30*time.Second)

	ticks := &fakeTicks{ticks: map[string][]models.RawTick{
		"MRVZAR": {
			tick("MRVZAR", base.Add(5*time.Second), 18.10),
			tick("MRVZAR", base.Add(20*time.Second), 18.40),
			tick("MRVZAR", base.Add(40*time.Second), 18.20),
			tick("MRVZAR", base.Add(1*time.Minute+10*time.Second), 18.30),
			tick("MRVZAR", base.Add(2*time.Minute+30*time.Second), 18.25),
		},
	}}
	store := newFakeStore()
	metrics := newFakeMetrics()

	agg := NewForexAggregator(ticks, store, metrics, applogger.Nop(), ForexConfig{
		Pairs:         []string{"MRVZAR"},
		EMAFast:       2,
		EMASlow:       3,
		ATRFast:       2,
		ATRSlow:       3,
		WindowBuckets: 3,
	})

	if _, err := agg.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	bars := store.candles[domrepo.TFM1]
	if len(bars) != 3 {
		t.Fatalf("expected 3 m1 bars in the window, got %d", len(bars))
	}

	// 12:01 has one tick at 18.30.
	if !bars[0].BucketStart.Equal(base.Add(1 * time.Minute)) {
		t.Fatalf("first window bar at %v, want 12:01", bars[0].BucketStart)
	}
	if !approx(bars[0].Close, 18.30) {
		t.Fatalf("12:01 close = %v, want 18.30", bars[0].Close)
	}

	// 12:03 has no ticks and carries 12:02's close forward flat.
	last := bars[2]
	if !last.BucketStart.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("last window bar at %v, want 12:03", last.BucketStart)
	}
	if !approx(last.Open, 18.25) || !approx(last.High, 18.25) || !approx(last.Low, 18.25) || !approx(last.Close, 18.25) {
		t.Fatalf("flat candle = %+v, want all 18.25", last)
	}

	for _, b := range bars {
		if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
			t.Fatalf("OHLC invariant violated: %+v", b)
		}
	}
}

func TestForexAggregatorIndicatorWarmup(t *testing.T) {
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	now := base.Add(3*time.Minute + 30*time.Second)

	ticks := &fakeTicks{ticks: map[string][]models.RawTick{
		"MRVZAR": {
			tick("MRVZAR", base.Add(5*time.Second), 18.10),
			tick("MRVZAR", base.Add(20*time.Second), 18.40),
			tick("MRVZAR", base.Add(40*time.Second), 18.20),
			tick("MRVZAR", base.Add(1*time.Minute+10*time.Second), 18.30),
			tick("MRVZAR", base.Add(2*time.Minute+30*time.Second), 18.25),
		},
	}}
	store := newFakeStore()

	agg := NewForexAggregator(ticks, store, newFakeMetrics(), applogger.Nop(), ForexConfig{
		Pairs:         []string{"MRVZAR"},
		EMAFast:       2,
		EMASlow:       3,
		ATRFast:       2,
		ATRSlow:       3,
		WindowBuckets: 3,
	})

	if _, err := agg.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Bars overall: 12:00 (first), then the 12:01..12:03 window. The slow
	// indicators (period 3) must still be warming up on the window's first
	// bar and present from the second onward.
	bars := store.candles[domrepo.TFM1]
	if len(bars) != 3 {
		t.Fatalf("expected 3 m1 bars, got %d", len(bars))
	}

	if bars[0].EMASlow != nil || bars[0].ATRSlow != nil {
		t.Fatalf("12:01 slow indicators should be nil during warm-up")
	}
	if bars[1].EMASlow == nil || bars[1].ATRSlow == nil {
		t.Fatalf("12:02 slow indicators should be set after warm-up")
	}

	// EMA(2) on closes 18.20, 18.30 seeds at (18.20+18.30)/2.
	if bars[0].EMAFast == nil || !approx(*bars[0].EMAFast, 18.25) {
		t.Fatalf("12:01 EMA(2) = %v, want 18.25", bars[0].EMAFast)
	}
	// TRs are 0.30, 0.10 so ATR(2) seeds at 0.20.
	if bars[0].ATRFast == nil || !approx(*bars[0].ATRFast, 0.20) {
		t.Fatalf("12:01 ATR(2) = %v, want 0.20", bars[0].ATRFast)
	}
	// Wilder smoothing: (0.20*1 + 0.05) / 2.
	if bars[1].ATRFast == nil || !approx(*bars[1].ATRFast, 0.125) {
		t.Fatalf("12:02 ATR(2) = %v, want 0.125", bars[1].ATRFast)
	}

	// Once an indicator produces a value it never goes back to nil.
	seen := false
	for _, b := range bars {
		if b.EMASlow != nil {
			seen = true
		} else if seen {
			t.Fatalf("EMA slow gap at %v", b.BucketStart)
		}
	}
}

func TestForexAggregatorSeedsFromLastCandle(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 3, 30, 0, time.UTC)

	store := newFakeStore()
	store.seeds[seedKey{tf: domrepo.TFM1, pair: "WAKMRV"}] = &models.OHLCBar{
		Pair:  "WAKMRV",
		Close: 0.0042,
	}

	agg := NewForexAggregator(&fakeTicks{}, store, newFakeMetrics(), applogger.Nop(), ForexConfig{
		Pairs:         []string{"WAKMRV"},
		EMAFast:       2,
		EMASlow:       3,
		ATRFast:       2,
		ATRSlow:       3,
		WindowBuckets: 3,
	})

	if _, err := agg.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	// No ticks at all: every window bucket is a flat candle at the seed close.
	bars := store.candles[domrepo.TFM1]
	if len(bars) != 3 {
		t.Fatalf("expected 3 carried-forward bars, got %d", len(bars))
	}
	for _, b := range bars {
		if !approx(b.Open, 0.0042) || !approx(b.Close, 0.0042) {
			t.Fatalf("carried bar = %+v, want flat 0.0042", b)
		}
	}
}

func TestForexAggregatorSkipsLeadingEmptyBuckets(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 3, 30, 0, time.UTC)

	store := newFakeStore()
	agg := NewForexAggregator(&fakeTicks{}, store, newFakeMetrics(), applogger.Nop(), ForexConfig{
		Pairs:         []string{"MRVZAR"},
		EMAFast:       2,
		EMASlow:       3,
		ATRFast:       2,
		ATRSlow:       3,
		WindowBuckets: 3,
	})

	if _, err := agg.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.candles[domrepo.TFM1]) != 0 {
		t.Fatalf("no ticks and no seed should produce no bars")
	}
}
