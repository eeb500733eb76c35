package usecase

import (
	"context"
	"sync"
	"time"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
)

type fakeTicks struct {
	ticks map[string][]models.RawTick
}

func (f *fakeTicks) ReadTicks(_ context.Context, pair string, from, to time.Time) ([]models.RawTick, error) {
	var out []models.RawTick
	for _, t := range f.ticks[pair] {
		if !t.Timestamp.Before(from) && t.Timestamp.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeEvents struct {
	usage []models.UsageEvent
	voice []models.VoiceEvent
	err   error
}

func (f *fakeEvents) ReadUsageEvents(_ context.Context, from, to time.Time) ([]models.UsageEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.UsageEvent
	for _, e := range f.usage {
		if !e.EventTime.Before(from) && e.EventTime.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ReadVoiceEvents(_ context.Context, from, to time.Time) ([]models.VoiceEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.VoiceEvent
	for _, e := range f.voice {
		if !e.StartTime.Before(from) && e.StartTime.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCustomers struct {
	customers []models.Customer
	err       error
}

func (f *fakeCustomers) ReadCustomers(_ context.Context) ([]models.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.customers, nil
}

type seedKey struct {
	tf   domrepo.Timeframe
	pair string
}

type fakeStore struct {
	mu sync.Mutex

	candles  map[domrepo.Timeframe][]models.OHLCBar
	usage    map[domrepo.Granularity][]models.UsageSummary
	sessions []models.TowerSession
	balances []models.BalanceRecord

	seeds        map[seedKey]*models.OHLCBar
	rates        map[string]map[time.Time]float64
	hourlyUsage  []models.UsageSummary
	lastBalances map[int]float64
	marked       map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		candles:      make(map[domrepo.Timeframe][]models.OHLCBar),
		usage:        make(map[domrepo.Granularity][]models.UsageSummary),
		seeds:        make(map[seedKey]*models.OHLCBar),
		rates:        make(map[string]map[time.Time]float64),
		lastBalances: make(map[int]float64),
		marked:       make(map[string]time.Time),
	}
}

func (f *fakeStore) UpsertCandles(_ context.Context, tf domrepo.Timeframe, bars []models.OHLCBar) (domrepo.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candles[tf] = append(f.candles[tf], bars...)
	return domrepo.UpsertStats{Inserted: len(bars)}, nil
}

func (f *fakeStore) UpsertUsageSummaries(_ context.Context, g domrepo.Granularity, rows []models.UsageSummary) (domrepo.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage[g] = append(f.usage[g], rows...)
	return domrepo.UpsertStats{Inserted: len(rows)}, nil
}

func (f *fakeStore) UpsertTowerSessions(_ context.Context, rows []models.TowerSession) (domrepo.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, rows...)
	return domrepo.UpsertStats{Inserted: len(rows)}, nil
}

func (f *fakeStore) UpsertBalanceRecords(_ context.Context, rows []models.BalanceRecord) (domrepo.UpsertStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances = append(f.balances, rows...)
	return domrepo.UpsertStats{Inserted: len(rows)}, nil
}

func (f *fakeStore) LastCandleBefore(_ context.Context, tf domrepo.Timeframe, pair string, _ time.Time) (*models.OHLCBar, error) {
	return f.seeds[seedKey{tf: tf, pair: pair}], nil
}

func (f *fakeStore) HourlyAvgRates(_ context.Context, pair string, _, _ time.Time) (map[time.Time]float64, error) {
	return f.rates[pair], nil
}

func (f *fakeStore) HourlyUsage(_ context.Context, _, _ time.Time) ([]models.UsageSummary, error) {
	return f.hourlyUsage, nil
}

func (f *fakeStore) LastBalanceBefore(_ context.Context, accountID int, _ time.Time) (float64, error) {
	return f.lastBalances[accountID], nil
}

func (f *fakeStore) MarkLayerProcessed(_ context.Context, layer string, processedTo time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked[layer] = processedTo
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	cycles    []string
	rows      map[string]int
	restated  map[string]int
	malformed map[string]int
	errs      map[string]int
	durations map[string]int
	lastCycle time.Time
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		rows:      make(map[string]int),
		restated:  make(map[string]int),
		malformed: make(map[string]int),
		errs:      make(map[string]int),
		durations: make(map[string]int),
	}
}

func (m *fakeMetrics) RecordCycle(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, status)
}

func (m *fakeMetrics) RecordLayerDuration(layer string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[layer]++
}

func (m *fakeMetrics) RecordRowsUpserted(table string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[table] += n
}

func (m *fakeMetrics) RecordRestatements(table string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restated[table] += n
}

func (m *fakeMetrics) RecordMalformedRows(source string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed[source] += n
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *fakeMetrics) SetLastCycleTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCycle = t
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.CycleEvent
}

func (p *fakePublisher) PublishCycle(_ context.Context, ev models.CycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeClock reports a fixed instant and fires all waits immediately.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time)
	close(ch)
	return ch
}

// blockClock never fires waits, so a scheduler loop only advances on
// context cancellation.
type blockClock struct {
	now time.Time
}

func (c *blockClock) Now() time.Time { return c.now }

func (c *blockClock) After(time.Duration) <-chan time.Time { return nil }

// scriptedLayer returns the scripted error for each call in order, then
// succeeds reporting the configured row count.
type scriptedLayer struct {
	mu    sync.Mutex
	name  string
	rows  int
	errs  []error
	calls int
}

func (l *scriptedLayer) Name() string { return l.name }

func (l *scriptedLayer) Run(context.Context, time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls <= len(l.errs) {
		return 0, l.errs[l.calls-1]
	}
	return l.rows, nil
}

func (l *scriptedLayer) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
