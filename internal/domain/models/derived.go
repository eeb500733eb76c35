package models

import "time"

// OHLCBar is one derived candle for a pair at a single timeframe bucket.
// Indicator pointers are nil until the warm-up window is satisfied; nil maps
// to NULL in the store, never to zero.
type OHLCBar struct {
	Pair        string
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	EMAFast     *float64
	EMASlow     *float64
	ATRFast     *float64
	ATRSlow     *float64
}

// UsageSummary is a per-subscriber cost summary for one bucket at one
// granularity. TotalCost is always CallCost + DataCost.
type UsageSummary struct {
	MSISDN      string
	BucketStart time.Time
	CallCost    float64
	DataCost    float64
	TotalCost   float64
}

// TowerSession is a contiguous interaction interval of a subscriber on one
// tower. Runs shorter than the noise cutoff never become sessions.
type TowerSession struct {
	MSISDN           string
	TowerID          int
	SessionStart     time.Time
	SessionEnd       time.Time
	InteractionCount int
}

// BalanceRecord is one flattened row of the hourly running-balance chain:
// account dimension, hourly ZAR costs, hourly average conversion rates and
// the accumulated cost in the secondary currency.
type BalanceRecord struct {
	AccountID int
	Hour      time.Time

	OwnerName string
	Email     string
	Phone     string
	Address   Address
	Device    Device

	CallCostZAR  float64
	DataCostZAR  float64
	TotalCostZAR float64

	AvgRate1 *float64 // hourly average WAKMRV close
	AvgRate2 *float64 // hourly average MRVZAR close

	CallCostSecondary        float64
	DataCostSecondary        float64
	TotalCostSecondary       float64
	AccumulatedCostSecondary float64
}

// CycleEvent is the status record published after each refresh cycle.
type CycleEvent struct {
	CycleID    string            `json:"cycle_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Status     string            `json:"status"`
	Layers     map[string]string `json:"layers"`
	RowsYield  int               `json:"rows_upserted"`
}
