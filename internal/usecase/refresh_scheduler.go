package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
	applogger "UsagePrep/pkg/logger"
)

// LayerAggregator is one derived-layer recomputation invoked each cycle.
// Run reports how many rows the layer wrote.
type LayerAggregator interface {
	Name() string
	Run(ctx context.Context, now time.Time) (int, error)
}

// RetryConfig bounds transient-failure retries within a cycle.
type RetryConfig struct {
	Attempts   int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// Cycle statuses.
const (
	CycleSuccess        = "SUCCESS"
	CyclePartialFailure = "PARTIAL_FAILURE"

	layerOK      = "ok"
	layerSkipped = "skipped: dependency failed"
)

// CycleReport is a snapshot of one completed refresh cycle.
type CycleReport struct {
	ID         string            `json:"cycle_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Status     string            `json:"status"`
	Layers     map[string]string `json:"layers"`
	Rows       int               `json:"rows_upserted"`
}

// RefreshScheduler drives one recomputation cycle per fixed interval. The
// three independent aggregators run concurrently; the balance flattener runs
// only when both the forex and usage layers of the same cycle succeeded. A
// layer failure marks the cycle PARTIAL_FAILURE but never stops the loop,
// and shutdown is honored only between cycles.
type RefreshScheduler struct {
	interval time.Duration
	retry    RetryConfig

	forex     LayerAggregator
	usage     LayerAggregator
	sessions  LayerAggregator
	flattener LayerAggregator

	store     domrepo.PreparedStore
	publisher domrepo.CyclePublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	clock     Clock

	mu   sync.RWMutex
	last *CycleReport
}

// NewRefreshScheduler creates the scheduler.
func NewRefreshScheduler(
	interval time.Duration,
	retry RetryConfig,
	forex, usage, sessions, flattener LayerAggregator,
	store domrepo.PreparedStore,
	publisher domrepo.CyclePublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	clock Clock,
) *RefreshScheduler {
	return &RefreshScheduler{
		interval:  interval,
		retry:     retry,
		forex:     forex,
		usage:     usage,
		sessions:  sessions,
		flattener: flattener,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		clock:     clock,
	}
}

// Run executes cycles until ctx is cancelled. An in-flight cycle always
// completes; cancellation is only observed between cycles.
func (s *RefreshScheduler) Run(ctx context.Context) error {
	s.log.Info("refresh scheduler started",
		applogger.Duration("interval", s.interval),
	)
	for {
		s.runCycle(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			s.log.Info("refresh scheduler stopped")
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}

// LastCycle returns a copy of the most recent cycle report, or nil before
// the first cycle completes.
func (s *RefreshScheduler) LastCycle() *CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	cp.Layers = make(map[string]string, len(s.last.Layers))
	for k, v := range s.last.Layers {
		cp.Layers[k] = v
	}
	return &cp
}

func (s *RefreshScheduler) runCycle(ctx context.Context) {
	id := uuid.NewString()
	now := s.clock.Now()
	log := s.log.With(applogger.String("cycle_id", id))
	log.Info("cycle started", applogger.Time("window_end", now))

	report := &CycleReport{
		ID:        id,
		StartedAt: now,
		Layers:    make(map[string]string),
	}

	// The three independent layers touch disjoint derived tables and may run
	// concurrently.
	independent := []LayerAggregator{s.forex, s.usage, s.sessions}
	errs := make([]error, len(independent))
	rows := make([]int, len(independent))

	var wg sync.WaitGroup
	for i, agg := range independent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows[i], errs[i] = s.runLayer(ctx, log, agg, now)
		}()
	}
	wg.Wait()

	for i, agg := range independent {
		report.Layers[agg.Name()] = layerStatus(errs[i])
		report.Rows += rows[i]
	}

	forexOK := errs[0] == nil
	usageOK := errs[1] == nil
	if forexOK && usageOK {
		n, err := s.runLayer(ctx, log, s.flattener, now)
		report.Layers[s.flattener.Name()] = layerStatus(err)
		report.Rows += n
		errs = append(errs, err)
	} else {
		log.Warn("balance flattener skipped",
			applogger.Bool("forex_ok", forexOK),
			applogger.Bool("usage_ok", usageOK),
		)
		report.Layers[s.flattener.Name()] = layerSkipped
	}

	report.Status = CycleSuccess
	for _, err := range errs {
		if err != nil {
			report.Status = CyclePartialFailure
			break
		}
	}
	report.FinishedAt = s.clock.Now()

	s.metrics.RecordCycle(report.Status)
	s.metrics.SetLastCycleTime(report.FinishedAt)

	log.Info("cycle finished",
		applogger.String("status", report.Status),
		applogger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		applogger.Any("layers", report.Layers),
	)

	s.publishReport(ctx, log, report)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}

// runLayer runs one aggregator with bounded backoff retries and records its
// duration and bookkeeping state. It returns the rows the layer wrote, which
// on a failed layer may still be non-zero from partially completed work.
func (s *RefreshScheduler) runLayer(ctx context.Context, log *applogger.Logger, agg LayerAggregator, now time.Time) (int, error) {
	start := s.clock.Now()

	var (
		rows int
		err  error
	)
	backoff := s.retry.BackoffMin
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		rows, err = agg.Run(ctx, now)
		if err == nil {
			break
		}
		if attempt == s.retry.Attempts {
			break
		}
		log.Warn("layer attempt failed; retrying",
			applogger.String("layer", agg.Name()),
			applogger.Int("attempt", attempt),
			applogger.Duration("backoff", backoff),
			applogger.Error(err),
		)
		<-s.clock.After(backoff)
		backoff = min(backoff*2, s.retry.BackoffMax)
	}

	s.metrics.RecordLayerDuration(agg.Name(), s.clock.Now().Sub(start).Seconds())

	if err != nil {
		s.metrics.RecordError(agg.Name())
		log.Error("layer failed",
			applogger.String("layer", agg.Name()),
			applogger.Error(err),
		)
		return rows, err
	}

	if mErr := s.store.MarkLayerProcessed(ctx, agg.Name(), now); mErr != nil {
		// Bookkeeping only; the layer's data is already materialized.
		log.Warn("mark layer processed failed",
			applogger.String("layer", agg.Name()),
			applogger.Error(mErr),
		)
	}
	return rows, nil
}

func (s *RefreshScheduler) publishReport(ctx context.Context, log *applogger.Logger, report *CycleReport) {
	if s.publisher == nil {
		return
	}
	ev := models.CycleEvent{
		CycleID:    report.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Status:     report.Status,
		Layers:     report.Layers,
		RowsYield:  report.Rows,
	}
	if err := s.publisher.PublishCycle(ctx, ev); err != nil {
		log.Warn("cycle event publish failed", applogger.Error(err))
	}
}

func layerStatus(err error) string {
	if err == nil {
		return layerOK
	}
	return "error: " + err.Error()
}
