package usecase

import (
	"context"
	"testing"
	"time"

	"UsagePrep/internal/domain/models"
	applogger "UsagePrep/pkg/logger"
)

func newTestSessionizer(events *fakeEvents, store *fakeStore) *TowerSessionizer {
	return NewTowerSessionizer(events, store, newFakeMetrics(), applogger.Nop(), SessionConfig{
		IdleGap:         10 * time.Minute,
		MinInteractions: 3,
		WindowBuckets:   3,
	})
}

func dataAt(msisdn string, tower int, ts time.Time) models.UsageEvent {
	return models.UsageEvent{MSISDN: msisdn, TowerID: tower, UpBytes: 1, EventTime: ts}
}

func TestSessionizeContiguousRun(t *testing.T) {
	start := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	s := newTestSessionizer(&fakeEvents{}, newFakeStore())

	var events []models.UsageEvent
	for i := 0; i < 5; i++ {
		events = append(events, dataAt("27831234567", 12, start.Add(time.Duration(i)*2*time.Minute)))
	}

	sessions := s.sessionize(events, nil)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.InteractionCount != 5 {
		t.Fatalf("interaction count = %d, want 5", got.InteractionCount)
	}
	if !got.SessionStart.Equal(start) || !got.SessionEnd.Equal(start.Add(8*time.Minute)) {
		t.Fatalf("session bounds = [%v, %v]", got.SessionStart, got.SessionEnd)
	}
}

func TestSessionizeBelowNoiseCutoff(t *testing.T) {
	start := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	s := newTestSessionizer(&fakeEvents{}, newFakeStore())

	events := []models.UsageEvent{
		dataAt("27831234567", 12, start),
		dataAt("27831234567", 12, start.Add(2 * time.Minute)),
	}

	if sessions := s.sessionize(events, nil); len(sessions) != 0 {
		t.Fatalf("2 interactions are noise, got %d sessions", len(sessions))
	}
}

func TestSessionizeIdleGapSplits(t *testing.T) {
	start := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	s := newTestSessionizer(&fakeEvents{}, newFakeStore())

	var events []models.UsageEvent
	for i := 0; i < 3; i++ {
		events = append(events, dataAt("27831234567", 12, start.Add(time.Duration(i)*2*time.Minute)))
	}
	// 11 minutes of silence, then a second run.
	second := start.Add(4*time.Minute + 11*time.Minute)
	for i := 0; i < 3; i++ {
		events = append(events, dataAt("27831234567", 12, second.Add(time.Duration(i)*2*time.Minute)))
	}

	sessions := s.sessionize(events, nil)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if !sessions[0].SessionEnd.Equal(start.Add(4 * time.Minute)) {
		t.Fatalf("first session end = %v", sessions[0].SessionEnd)
	}
	if !sessions[1].SessionStart.Equal(second) {
		t.Fatalf("second session start = %v", sessions[1].SessionStart)
	}
}

func TestSessionizeTowerChangeSplits(t *testing.T) {
	start := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	s := newTestSessionizer(&fakeEvents{}, newFakeStore())

	var events []models.UsageEvent
	for i := 0; i < 3; i++ {
		events = append(events, dataAt("27831234567", 12, start.Add(time.Duration(i)*2*time.Minute)))
		events = append(events, dataAt("27831234567", 13, start.Add(time.Duration(i)*2*time.Minute+time.Minute)))
	}

	sessions := s.sessionize(events, nil)
	if len(sessions) != 2 {
		t.Fatalf("interleaved towers should yield 2 sessions, got %d", len(sessions))
	}
	if sessions[0].TowerID == sessions[1].TowerID {
		t.Fatalf("sessions on the same tower: %+v", sessions)
	}
	for _, ses := range sessions {
		if ses.InteractionCount != 3 {
			t.Fatalf("interaction count = %d, want 3", ses.InteractionCount)
		}
	}
}

func TestSessionizeMergesVoiceAndData(t *testing.T) {
	start := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	s := newTestSessionizer(&fakeEvents{}, newFakeStore())

	usage := []models.UsageEvent{
		dataAt("27831234567", 12, start),
		dataAt("27831234567", 12, start.Add(4 * time.Minute)),
	}
	voice := []models.VoiceEvent{
		{MSISDN: "27831234567", TowerID: 12, DurationSec: 30, StartTime: start.Add(2 * time.Minute)},
	}

	sessions := s.sessionize(usage, voice)
	if len(sessions) != 1 || sessions[0].InteractionCount != 3 {
		t.Fatalf("voice and data should count together, got %+v", sessions)
	}
}

func TestSessionizerRunUpserts(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 20, 0, 0, time.UTC)
	events := &fakeEvents{
		usage: []models.UsageEvent{
			dataAt("27831234567", 12, now.Add(-30*time.Minute)),
			dataAt("27831234567", 12, now.Add(-28*time.Minute)),
			dataAt("27831234567", 12, now.Add(-26*time.Minute)),
		},
	}
	store := newFakeStore()

	s := newTestSessionizer(events, store)
	if _, err := s.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("expected 1 session upserted, got %d", len(store.sessions))
	}
}
