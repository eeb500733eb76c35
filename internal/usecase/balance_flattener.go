package usecase

import (
	"context"
	"time"

	"UsagePrep/internal/domain/models"
	domrepo "UsagePrep/internal/domain/repository"
	applogger "UsagePrep/pkg/logger"
	"UsagePrep/pkg/util"
)

// BalanceConfig holds currency conversion parameters. RatePair1/RatePair2
// form the conversion chain from the billing currency to the secondary
// currency (ZAR -> MRV -> WAK by default); DefaultRate is the fallback
// ZAR-per-unit rate when an hour has no candles for either pair.
type BalanceConfig struct {
	RatePair1     string
	RatePair2     string
	DefaultRate   float64
	WindowBuckets int
}

// BalanceFlattener joins the customer dimension with hourly cost totals and
// hourly average forex rates into one flattened running-balance row per
// account per hour. It must run only after the usage and forex layers of
// the same cycle succeeded, and it is the single writer of the balance
// chain: each account's hours are processed in strictly increasing time
// order so the accumulation never races itself.
type BalanceFlattener struct {
	customers domrepo.CustomerReader
	store     domrepo.PreparedStore
	metrics   domrepo.Metrics
	log       *applogger.Logger
	cfg       BalanceConfig
}

// NewBalanceFlattener creates the balance flattener.
func NewBalanceFlattener(customers domrepo.CustomerReader, store domrepo.PreparedStore, metrics domrepo.Metrics, log *applogger.Logger, cfg BalanceConfig) *BalanceFlattener {
	return &BalanceFlattener{customers: customers, store: store, metrics: metrics, log: log, cfg: cfg}
}

func (f *BalanceFlattener) Name() string { return "crm_user_balance" }

func (f *BalanceFlattener) Run(ctx context.Context, now time.Time) (int, error) {
	from := util.BucketRange(now, time.Hour, f.cfg.WindowBuckets)
	lastHour := util.FloorTo(now, time.Hour)

	customers, err := f.customers.ReadCustomers(ctx)
	if err != nil {
		return 0, err
	}
	if len(customers) == 0 {
		f.log.Warn("no customer dimension rows; nothing to flatten")
		return 0, nil
	}

	usage, err := f.store.HourlyUsage(ctx, from, now)
	if err != nil {
		return 0, err
	}
	rates1, err := f.store.HourlyAvgRates(ctx, f.cfg.RatePair1, from, now)
	if err != nil {
		return 0, err
	}
	rates2, err := f.store.HourlyAvgRates(ctx, f.cfg.RatePair2, from, now)
	if err != nil {
		return 0, err
	}

	costs := indexHourlyCosts(usage)

	var rows []models.BalanceRecord
	for _, c := range customers {
		if c.Phone == "" {
			continue
		}

		// Seed the accumulation from the last materialized balance before the
		// window; recomputing the window re-states those hours in place.
		accumulated, err := f.store.LastBalanceBefore(ctx, c.AccountID, from)
		if err != nil {
			return 0, err
		}

		var device models.Device
		if len(c.Devices) > 0 {
			device = c.Devices[0]
		}

		for hour := from; !hour.After(lastHour); hour = hour.Add(time.Hour) {
			hc := costs[c.Phone][hour]

			r1, ok1 := rates1[hour]
			r2, ok2 := rates2[hour]
			zarPerUnit := f.cfg.DefaultRate
			if ok1 && ok2 && r1*r2 > 0 {
				zarPerUnit = r1 * r2
			}

			callSecondary := hc.call / zarPerUnit
			dataSecondary := hc.data / zarPerUnit
			totalSecondary := callSecondary + dataSecondary
			accumulated += totalSecondary

			rec := models.BalanceRecord{
				AccountID:                c.AccountID,
				Hour:                     hour,
				OwnerName:                c.OwnerName,
				Email:                    c.Email,
				Phone:                    c.Phone,
				Address:                  c.Address,
				Device:                   device,
				CallCostZAR:              hc.call,
				DataCostZAR:              hc.data,
				TotalCostZAR:             hc.call + hc.data,
				CallCostSecondary:        callSecondary,
				DataCostSecondary:        dataSecondary,
				TotalCostSecondary:       totalSecondary,
				AccumulatedCostSecondary: accumulated,
			}
			if ok1 {
				rec.AvgRate1 = &r1
			}
			if ok2 {
				rec.AvgRate2 = &r2
			}
			rows = append(rows, rec)
		}
	}

	stats, err := f.store.UpsertBalanceRecords(ctx, rows)
	if err != nil {
		return 0, err
	}
	f.metrics.RecordRowsUpserted("prepared_layers.crm_user_balance_hourly", stats.Total())
	f.metrics.RecordRestatements("prepared_layers.crm_user_balance_hourly", stats.Restated)
	if stats.Restated > 0 {
		f.log.Info("balance records restated",
			applogger.Int("rows", stats.Restated),
		)
	}
	return stats.Total(), nil
}

type hourlyCost struct {
	call float64
	data float64
}

func indexHourlyCosts(usage []models.UsageSummary) map[string]map[time.Time]hourlyCost {
	costs := make(map[string]map[time.Time]hourlyCost)
	for _, u := range usage {
		byHour, ok := costs[u.MSISDN]
		if !ok {
			byHour = make(map[time.Time]hourlyCost)
			costs[u.MSISDN] = byHour
		}
		hc := byHour[u.BucketStart]
		hc.call += u.CallCost
		hc.data += u.DataCost
		byHour[u.BucketStart] = hc
	}
	return costs
}
