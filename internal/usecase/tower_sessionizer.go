package usecase

import (
	"context"
	"sort"
	"time"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
	applogger "UsagePrep/pkg/logger"
	"UsagePrep/pkg/util"
)

// SessionConfig holds sessionization parameters.
type SessionConfig struct {
	IdleGap         time.Duration
	MinInteractions int
	WindowBuckets   int
}

// TowerSessionizer folds per-subscriber, per-tower interaction timestamps
// into contiguous session intervals. A run shorter than MinInteractions is
// noise and produces no row; sessions never span a tower change. The read
// window is padded backwards by the idle gap so a session straddling the
// window boundary is re-derived rather than truncated.
type TowerSessionizer struct {
	events  domrepo.UsageReader
	store   domrepo.PreparedStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     SessionConfig
}

// NewTowerSessionizer creates the sessionizer.
func NewTowerSessionizer(events domrepo.UsageReader, store domrepo.PreparedStore, metrics domrepo.Metrics, log *applogger.Logger, cfg SessionConfig) *TowerSessionizer {
	return &TowerSessionizer{events: events, store: store, metrics: metrics, log: log, cfg: cfg}
}

func (s *TowerSessionizer) Name() string { return "cdr_tower_sessions" }

func (s *TowerSessionizer) Run(ctx context.Context, now time.Time) (int, error) {
	from := util.BucketRange(now, time.Hour, s.cfg.WindowBuckets).Add(-s.cfg.IdleGap)

	usage, err := s.events.ReadUsageEvents(ctx, from, now)
	if err != nil {
		return 0, err
	}
	voice, err := s.events.ReadVoiceEvents(ctx, from, now)
	if err != nil {
		return 0, err
	}

	sessions := s.sessionize(usage, voice)

	stats, err := s.store.UpsertTowerSessions(ctx, sessions)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordRowsUpserted("prepared_layers.cdr_tower_sessions", stats.Total())
	s.metrics.RecordRestatements("prepared_layers.cdr_tower_sessions", stats.Restated)
	if stats.Restated > 0 {
		s.log.Info("tower sessions restated from late events",
			applogger.Int("rows", stats.Restated),
		)
	}
	return stats.Total(), nil
}

type sessionKey struct {
	msisdn  string
	towerID int
}

// sessionize groups interactions by (msisdn, tower) and scans each group
// chronologically, closing the candidate session whenever the gap to the
// next interaction exceeds the idle threshold.
func (s *TowerSessionizer) sessionize(usage []models.UsageEvent, voice []models.VoiceEvent) []models.TowerSession {
	groups := make(map[sessionKey][]time.Time)
	for _, e := range usage {
		if e.MSISDN == "" || e.EventTime.IsZero() {
			continue
		}
		k := sessionKey{msisdn: e.MSISDN, towerID: e.TowerID}
		groups[k] = append(groups[k], e.EventTime.UTC())
	}
	for _, e := range voice {
		if e.MSISDN == "" || e.StartTime.IsZero() {
			continue
		}
		k := sessionKey{msisdn: e.MSISDN, towerID: e.TowerID}
		groups[k] = append(groups[k], e.StartTime.UTC())
	}

	keys := make([]sessionKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].msisdn != keys[j].msisdn {
			return keys[i].msisdn < keys[j].msisdn
		}
		return keys[i].towerID < keys[j].towerID
	})

	var sessions []models.TowerSession
	for _, k := range keys {
		ts := groups[k]
		sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

		start, last := ts[0], ts[0]
		count := 1
		flush := func() {
			if count >= s.cfg.MinInteractions {
				sessions = append(sessions, models.TowerSession{
					MSISDN:           k.msisdn,
					TowerID:          k.towerID,
					SessionStart:     start,
					SessionEnd:       last,
					InteractionCount: count,
				})
			}
		}
		for _, t := range ts[1:] {
			if t.Sub(last) <= s.cfg.IdleGap {
				last = t
				count++
				continue
			}
			flush()
			start, last = t, t
			count = 1
		}
		flush()
	}
	return sessions
}
