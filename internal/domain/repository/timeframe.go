package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TFM1  Timeframe = "m1"
	TFM30 Timeframe = "m30"
	TFH1  Timeframe = "h1"
)

// Timeframes lists all materialized candle resolutions, finest first.
func Timeframes() []Timeframe { return []Timeframe{TFM1, TFM30, TFH1} }

// Duration returns the bucket width of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TFM1:
		return time.Minute
	case TFM30:
		return 30 * time.Minute
	case TFH1:
		return time.Hour
	default:
		return time.Minute
	}
}

// Table returns the derived table the timeframe materializes into.
func (tf Timeframe) Table() string {
	return "prepared_layers.forex_ohlc_" + string(tf)
}

// Granularity represents usage summary bucket widths.
type Granularity string

const (
	G15Min Granularity = "15min"
	G30Min Granularity = "30min"
	G1Hr   Granularity = "1hr"
)

// Granularities lists all usage summary bucket widths, finest first.
func Granularities() []Granularity { return []Granularity{G15Min, G30Min, G1Hr} }

// Duration returns the bucket width of the granularity.
func (g Granularity) Duration() time.Duration {
	switch g {
	case G15Min:
		return 15 * time.Minute
	case G30Min:
		return 30 * time.Minute
	case G1Hr:
		return time.Hour
	default:
		return time.Hour
	}
}

// Table returns the derived table the granularity materializes into.
func (g Granularity) Table() string {
	return "prepared_layers.cdr_usage_summary_" + string(g)
}
