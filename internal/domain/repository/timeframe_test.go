package repository

import (
	"testing"
	"time"
)

func TestTimeframeTables(t *testing.T) {
	cases := []struct {
		tf    Timeframe
		d     time.Duration
		table string
	}{
		{TFM1, time.Minute, "prepared_layers.forex_ohlc_m1"},
		{TFM30, 30 * time.Minute, "prepared_layers.forex_ohlc_m30"},
		{TFH1, time.Hour, "prepared_layers.forex_ohlc_h1"},
	}
	for _, c := range cases {
		if c.tf.Duration() != c.d {
			t.Fatalf("%s duration = %v, want %v", c.tf, c.tf.Duration(), c.d)
		}
		if c.tf.Table() != c.table {
			t.Fatalf("%s table = %q, want %q", c.tf, c.tf.Table(), c.table)
		}
	}
}

func TestGranularityTables(t *testing.T) {
	cases := []struct {
		g     Granularity
		d     time.Duration
		table string
	}{
		{G15Min, 15 * time.Minute, "prepared_layers.cdr_usage_summary_15min"},
		{G30Min, 30 * time.Minute, "prepared_layers.cdr_usage_summary_30min"},
		{G1Hr, time.Hour, "prepared_layers.cdr_usage_summary_1hr"},
	}
	for _, c := range cases {
		if c.g.Duration() != c.d {
			t.Fatalf("%s duration = %v, want %v", c.g, c.g.Duration(), c.d)
		}
		if c.g.Table() != c.table {
			t.Fatalf("%s table = %q, want %q", c.g, c.g.Table(), c.table)
		}
	}
}
