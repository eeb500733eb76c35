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

// UsageConfig holds the cost model parameters.
type UsageConfig struct {
	DataRatePerGB   float64
	VoiceRatePerMin float64
	BytesPerGB      float64
	WindowBuckets   int
}

// UsageAggregator converts raw data and voice events into per-subscriber
// cost summaries at the three bucket granularities. The cost model is
// type-agnostic: unrecognized data_type/call_type values still contribute
// bytes and seconds. Malformed rows are skipped and counted, never fatal.
type UsageAggregator struct {
	events  domrepo.UsageReader
	store   domrepo.PreparedStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     UsageConfig
}

// NewUsageAggregator creates the usage cost aggregator.
func NewUsageAggregator(events domrepo.UsageReader, store domrepo.PreparedStore, metrics domrepo.Metrics, log *applogger.Logger, cfg UsageConfig) *UsageAggregator {
	return &UsageAggregator{events: events, store: store, metrics: metrics, log: log, cfg: cfg}
}

func (a *UsageAggregator) Name() string { return "cdr_usage" }

func (a *UsageAggregator) Run(ctx context.Context, now time.Time) (int, error) {
	// One read at the widest granularity's window covers all three.
	from := util.BucketRange(now, domrepo.G1Hr.Duration(), a.cfg.WindowBuckets)

	usage, err := a.events.ReadUsageEvents(ctx, from, now)
	if err != nil {
		return 0, err
	}
	voice, err := a.events.ReadVoiceEvents(ctx, from, now)
	if err != nil {
		return 0, err
	}

	usage, badUsage := partitionUsage(usage)
	voice, badVoice := partitionVoice(voice)
	a.metrics.RecordMalformedRows("cdr_data", badUsage)
	a.metrics.RecordMalformedRows("cdr_voice", badVoice)
	if badUsage+badVoice > 0 {
		a.log.Warn("malformed raw events skipped",
			applogger.Int("data", badUsage),
			applogger.Int("voice", badVoice),
		)
	}

	var written int
	var errs []error
	for _, g := range domrepo.Granularities() {
		gFrom := util.BucketRange(now, g.Duration(), a.cfg.WindowBuckets)
		rows := a.bucketize(usage, voice, g, gFrom)

		stats, err := a.store.UpsertUsageSummaries(ctx, g, rows)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", g, err))
			continue
		}
		written += stats.Total()
		a.metrics.RecordRowsUpserted(g.Table(), stats.Total())
		a.metrics.RecordRestatements(g.Table(), stats.Restated)
		if stats.Restated > 0 {
			a.log.Info("usage summaries restated from late events",
				applogger.String("table", g.Table()),
				applogger.Int("rows", stats.Restated),
			)
		}
	}
	return written, errors.Join(errs...)
}

type usageKey struct {
	msisdn string
	bucket time.Time
}

type usageTotals struct {
	bytes   int64
	seconds int64
}

// bucketize assigns events to buckets of the granularity and derives costs
// from the summed bytes and seconds per (msisdn, bucket).
func (a *UsageAggregator) bucketize(usage []models.UsageEvent, voice []models.VoiceEvent, g domrepo.Granularity, from time.Time) []models.UsageSummary {
	d := g.Duration()
	totals := make(map[usageKey]*usageTotals)

	get := func(msisdn string, ts time.Time) *usageTotals {
		k := usageKey{msisdn: msisdn, bucket: util.FloorTo(ts, d)}
		t, ok := totals[k]
		if !ok {
			t = &usageTotals{}
			totals[k] = t
		}
		return t
	}

	for _, e := range usage {
		if e.EventTime.Before(from) {
			continue
		}
		get(e.MSISDN, e.EventTime).bytes += e.UpBytes + e.DownBytes
	}
	for _, e := range voice {
		if e.StartTime.Before(from) {
			continue
		}
		get(e.MSISDN, e.StartTime).seconds += e.DurationSec
	}

	rows := make([]models.UsageSummary, 0, len(totals))
	for k, t := range totals {
		dataCost := float64(t.bytes) * a.cfg.DataRatePerGB / a.cfg.BytesPerGB
		callCost := float64(t.seconds) / 60 * a.cfg.VoiceRatePerMin
		rows = append(rows, models.UsageSummary{
			MSISDN:      k.msisdn,
			BucketStart: k.bucket,
			CallCost:    callCost,
			DataCost:    dataCost,
			TotalCost:   callCost + dataCost,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].BucketStart.Equal(rows[j].BucketStart) {
			return rows[i].BucketStart.Before(rows[j].BucketStart)
		}
		return rows[i].MSISDN < rows[j].MSISDN
	})
	return rows
}

func partitionUsage(events []models.UsageEvent) (valid []models.UsageEvent, malformed int) {
	valid = events[:0:0]
	for _, e := range events {
		if e.MSISDN == "" || e.EventTime.IsZero() || e.UpBytes < 0 || e.DownBytes < 0 {
			malformed++
			continue
		}
		valid = append(valid, e)
	}
	return valid, malformed
}

func partitionVoice(events []models.VoiceEvent) (valid []models.VoiceEvent, malformed int) {
	valid = events[:0:0]
	for _, e := range events {
		if e.MSISDN == "" || e.StartTime.IsZero() || e.DurationSec < 0 {
			malformed++
			continue
		}
		valid = append(valid, e)
	}
	return valid, malformed
}
