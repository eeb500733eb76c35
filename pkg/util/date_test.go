package util

import (
	"testing"
	"time"
)

func TestFloorTo(t *testing.T) {
	ts := time.Date(2025, 12, 7, 12, 34, 56, 0, time.UTC)
	got := FloorTo(ts, 15*time.Minute)
	want := time.Date(2025, 12, 7, 12, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFloorToAlreadyAligned(t *testing.T) {
	ts := time.Date(2025, 12, 7, 12, 30, 0, 0, time.UTC)
	if got := FloorTo(ts, 30*time.Minute); !got.Equal(ts) {
		t.Fatalf("got %v want %v", got, ts)
	}
}

func TestBucketRange(t *testing.T) {
	now := time.Date(2025, 12, 7, 12, 34, 0, 0, time.UTC)
	got := BucketRange(now, time.Hour, 3)
	want := time.Date(2025, 12, 7, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBucketRangeMinimumOneBucket(t *testing.T) {
	now := time.Date(2025, 12, 7, 12, 34, 0, 0, time.UTC)
	got := BucketRange(now, time.Hour, 0)
	want := time.Date(2025, 12, 7, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeFractionalSeconds(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10.123456789Z")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Nanosecond() != 123456789 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}
