package repository

import (
	"context"
	"time"

	"UsagePrep/internal/domain/models"
)

// TickReader reads raw forex ticks for a pair within a time range.
type TickReader interface {
	ReadTicks(ctx context.Context, pair string, from, to time.Time) ([]models.RawTick, error)
}

// UsageReader reads raw data and voice events within a time range.
type UsageReader interface {
	ReadUsageEvents(ctx context.Context, from, to time.Time) ([]models.UsageEvent, error)
	ReadVoiceEvents(ctx context.Context, from, to time.Time) ([]models.VoiceEvent, error)
}

// CustomerReader reads the customer reference dimension with nested
// address and devices.
type CustomerReader interface {
	ReadCustomers(ctx context.Context) ([]models.Customer, error)
}

// UpsertStats reports what an upsert actually did. Restated counts rows
// that existed with different values and were overwritten; unchanged
// re-upserts are neither inserted nor restated.
type UpsertStats struct {
	Inserted int
	Restated int
}

// Total returns the number of rows the upsert touched.
func (s UpsertStats) Total() int { return s.Inserted + s.Restated }

// PreparedStore gives the aggregators keyed upsert access to the derived
// tables and the reads the Balance Flattener needs. All upserts are
// idempotent: same key with same values is a no-op.
type PreparedStore interface {
	UpsertCandles(ctx context.Context, tf Timeframe, bars []models.OHLCBar) (UpsertStats, error)
	UpsertUsageSummaries(ctx context.Context, g Granularity, rows []models.UsageSummary) (UpsertStats, error)
	UpsertTowerSessions(ctx context.Context, rows []models.TowerSession) (UpsertStats, error)
	UpsertBalanceRecords(ctx context.Context, rows []models.BalanceRecord) (UpsertStats, error)

	// LastCandleBefore seeds carry-forward and indicator continuity when the
	// lookback read starts on empty buckets.
	LastCandleBefore(ctx context.Context, tf Timeframe, pair string, before time.Time) (*models.OHLCBar, error)

	// HourlyAvgRates returns the average M1 close per hour for a pair.
	HourlyAvgRates(ctx context.Context, pair string, from, to time.Time) (map[time.Time]float64, error)

	// HourlyUsage returns the 1hr usage summaries in [from, to).
	HourlyUsage(ctx context.Context, from, to time.Time) ([]models.UsageSummary, error)

	// LastBalanceBefore returns the accumulated secondary-currency cost of
	// the account's most recent balance row strictly before the given hour,
	// or (0, nil) when no such row exists.
	LastBalanceBefore(ctx context.Context, accountID int, before time.Time) (float64, error)

	// MarkLayerProcessed records bookkeeping state for a layer. Informational
	// only; correctness never depends on it.
	MarkLayerProcessed(ctx context.Context, layer string, processedTo time.Time) error
}

// CyclePublisher emits refresh-cycle status records for downstream
// operational tooling.
type CyclePublisher interface {
	PublishCycle(ctx context.Context, ev models.CycleEvent) error
	Close() error
}

// Metrics records operational measurements for the refresh engine.
type Metrics interface {
	RecordCycle(status string)
	RecordLayerDuration(layer string, seconds float64)
	RecordRowsUpserted(table string, n int)
	RecordRestatements(table string, n int)
	RecordMalformedRows(source string, n int)
	RecordError(kind string)
	SetLastCycleTime(t time.Time)
}
