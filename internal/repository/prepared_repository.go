package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
)

const balanceTable = "prepared_layers.crm_user_balance_hourly"

// PreparedRepository implements PreparedStore against Postgres. Every write
// is an ON CONFLICT upsert on the table's natural key; `RETURNING (xmax = 0)`
// splits the touched rows into first-time inserts and re-statements, and
// unchanged re-upserts are filtered out by the DO UPDATE guard so they touch
// nothing at all.
type PreparedRepository struct {
	db *sqlx.DB
}

// NewPreparedRepository creates the derived-table store.
func NewPreparedRepository(db *sqlx.DB) repository.PreparedStore {
	return &PreparedRepository{db: db}
}

func (r *PreparedRepository) UpsertCandles(ctx context.Context, tf repository.Timeframe, bars []models.OHLCBar) (repository.UpsertStats, error) {
	var stats repository.UpsertStats
	if len(bars) == 0 {
		return stats, nil
	}

	const cols = 10
	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, b := range bars[start:end] {
			values = append(values, placeholders(len(args), cols))
			args = append(args,
				b.BucketStart, b.Pair, b.Open, b.High, b.Low, b.Close,
				b.EMAFast, b.EMASlow, b.ATRFast, b.ATRSlow,
			)
		}

		q := fmt.Sprintf(`INSERT INTO %s AS t
			(datetime, pair_name, open_price, high_price, low_price, close_price, ema_8, ema_21, atr_8, atr_21)
			VALUES %s
			ON CONFLICT (datetime, pair_name) DO UPDATE SET
				open_price = EXCLUDED.open_price,
				high_price = EXCLUDED.high_price,
				low_price = EXCLUDED.low_price,
				close_price = EXCLUDED.close_price,
				ema_8 = EXCLUDED.ema_8,
				ema_21 = EXCLUDED.ema_21,
				atr_8 = EXCLUDED.atr_8,
				atr_21 = EXCLUDED.atr_21,
				created_at = CURRENT_TIMESTAMP
			WHERE (t.open_price, t.high_price, t.low_price, t.close_price, t.ema_8, t.ema_21, t.atr_8, t.atr_21)
				IS DISTINCT FROM
				(EXCLUDED.open_price, EXCLUDED.high_price, EXCLUDED.low_price, EXCLUDED.close_price, EXCLUDED.ema_8, EXCLUDED.ema_21, EXCLUDED.atr_8, EXCLUDED.atr_21)
			RETURNING (xmax = 0)`, tf.Table(), strings.Join(values, ","))

		chunkStats, err := r.runUpsert(ctx, q, args)
		if err != nil {
			return stats, fmt.Errorf("upsert candles %s: %w", tf.Table(), err)
		}
		stats.Inserted += chunkStats.Inserted
		stats.Restated += chunkStats.Restated
	}
	return stats, nil
}

func (r *PreparedRepository) UpsertUsageSummaries(ctx context.Context, g repository.Granularity, rows []models.UsageSummary) (repository.UpsertStats, error) {
	var stats repository.UpsertStats
	if len(rows) == 0 {
		return stats, nil
	}

	const cols = 5
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, s := range rows[start:end] {
			values = append(values, placeholders(len(args), cols))
			args = append(args, s.BucketStart, s.MSISDN, s.CallCost, s.DataCost, s.TotalCost)
		}

		q := fmt.Sprintf(`INSERT INTO %s AS t
			(datetime, msisdn, call_cost_zar, data_cost_zar, total_cost_zar)
			VALUES %s
			ON CONFLICT (datetime, msisdn) DO UPDATE SET
				call_cost_zar = EXCLUDED.call_cost_zar,
				data_cost_zar = EXCLUDED.data_cost_zar,
				total_cost_zar = EXCLUDED.total_cost_zar,
				created_at = CURRENT_TIMESTAMP
			WHERE (t.call_cost_zar, t.data_cost_zar, t.total_cost_zar)
				IS DISTINCT FROM
				(EXCLUDED.call_cost_zar, EXCLUDED.data_cost_zar, EXCLUDED.total_cost_zar)
			RETURNING (xmax = 0)`, g.Table(), strings.Join(values, ","))

		chunkStats, err := r.runUpsert(ctx, q, args)
		if err != nil {
			return stats, fmt.Errorf("upsert usage %s: %w", g.Table(), err)
		}
		stats.Inserted += chunkStats.Inserted
		stats.Restated += chunkStats.Restated
	}
	return stats, nil
}

func (r *PreparedRepository) UpsertTowerSessions(ctx context.Context, rows []models.TowerSession) (repository.UpsertStats, error) {
	var stats repository.UpsertStats
	if len(rows) == 0 {
		return stats, nil
	}

	const cols = 5
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, s := range rows[start:end] {
			values = append(values, placeholders(len(args), cols))
			args = append(args, s.MSISDN, s.TowerID, s.SessionStart, s.SessionEnd, s.InteractionCount)
		}

		q := fmt.Sprintf(`INSERT INTO prepared_layers.cdr_tower_sessions AS t
			(msisdn, tower_id, session_start, session_end, interaction_count)
			VALUES %s
			ON CONFLICT (msisdn, tower_id, session_start) DO UPDATE SET
				session_end = EXCLUDED.session_end,
				interaction_count = EXCLUDED.interaction_count,
				created_at = CURRENT_TIMESTAMP
			WHERE (t.session_end, t.interaction_count)
				IS DISTINCT FROM
				(EXCLUDED.session_end, EXCLUDED.interaction_count)
			RETURNING (xmax = 0)`, strings.Join(values, ","))

		chunkStats, err := r.runUpsert(ctx, q, args)
		if err != nil {
			return stats, fmt.Errorf("upsert tower sessions: %w", err)
		}
		stats.Inserted += chunkStats.Inserted
		stats.Restated += chunkStats.Restated
	}
	return stats, nil
}

func (r *PreparedRepository) UpsertBalanceRecords(ctx context.Context, rows []models.BalanceRecord) (repository.UpsertStats, error) {
	var stats repository.UpsertStats
	if len(rows) == 0 {
		return stats, nil
	}

	const cols = 23
	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, b := range rows[start:end] {
			values = append(values, placeholders(len(args), cols))
			args = append(args,
				b.Hour, b.AccountID, b.OwnerName, b.Email, b.Phone,
				b.Address.StreetAddress, b.Address.City, b.Address.State, b.Address.PostalCode, b.Address.Country,
				b.Device.DeviceID, b.Device.DeviceName, b.Device.DeviceType, b.Device.DeviceOS,
				b.CallCostZAR, b.DataCostZAR, b.TotalCostZAR,
				b.AvgRate1, b.AvgRate2,
				b.CallCostSecondary, b.DataCostSecondary, b.TotalCostSecondary, b.AccumulatedCostSecondary,
			)
		}

		q := fmt.Sprintf(`INSERT INTO %s AS t
			(datetime, account_id, owner_name, email, phone_number,
			 street_address, city, state, postal_code, country,
			 device_id, device_name, device_type, device_os,
			 call_cost_zar, data_cost_zar, total_cost_zar,
			 avg_secondary_rate_1, avg_secondary_rate_2,
			 call_cost_secondary, data_cost_secondary, total_cost_secondary, accumulated_cost_secondary)
			VALUES %s
			ON CONFLICT (datetime, account_id) DO UPDATE SET
				owner_name = EXCLUDED.owner_name,
				email = EXCLUDED.email,
				phone_number = EXCLUDED.phone_number,
				street_address = EXCLUDED.street_address,
				city = EXCLUDED.city,
				state = EXCLUDED.state,
				postal_code = EXCLUDED.postal_code,
				country = EXCLUDED.country,
				device_id = EXCLUDED.device_id,
				device_name = EXCLUDED.device_name,
				device_type = EXCLUDED.device_type,
				device_os = EXCLUDED.device_os,
				call_cost_zar = EXCLUDED.call_cost_zar,
				data_cost_zar = EXCLUDED.data_cost_zar,
				total_cost_zar = EXCLUDED.total_cost_zar,
				avg_secondary_rate_1 = EXCLUDED.avg_secondary_rate_1,
				avg_secondary_rate_2 = EXCLUDED.avg_secondary_rate_2,
				call_cost_secondary = EXCLUDED.call_cost_secondary,
				data_cost_secondary = EXCLUDED.data_cost_secondary,
				total_cost_secondary = EXCLUDED.total_cost_secondary,
				accumulated_cost_secondary = EXCLUDED.accumulated_cost_secondary,
				created_at = CURRENT_TIMESTAMP
			WHERE (t.call_cost_zar, t.data_cost_zar, t.total_cost_zar, t.call_cost_secondary, t.data_cost_secondary, t.total_cost_secondary, t.accumulated_cost_secondary)
				IS DISTINCT FROM
				(EXCLUDED.call_cost_zar, EXCLUDED.data_cost_zar, EXCLUDED.total_cost_zar, EXCLUDED.call_cost_secondary, EXCLUDED.data_cost_secondary, EXCLUDED.total_cost_secondary, EXCLUDED.accumulated_cost_secondary)
			RETURNING (xmax = 0)`, balanceTable, strings.Join(values, ","))

		chunkStats, err := r.runUpsert(ctx, q, args)
		if err != nil {
			return stats, fmt.Errorf("upsert balance records: %w", err)
		}
		stats.Inserted += chunkStats.Inserted
		stats.Restated += chunkStats.Restated
	}
	return stats, nil
}

func (r *PreparedRepository) LastCandleBefore(ctx context.Context, tf repository.Timeframe, pair string, before time.Time) (*models.OHLCBar, error) {
	q := fmt.Sprintf(`SELECT datetime, pair_name, open_price, high_price, low_price, close_price, ema_8, ema_21, atr_8, atr_21
		FROM %s
		WHERE pair_name = $1 AND datetime < $2
		ORDER BY datetime DESC
		LIMIT 1`, tf.Table())

	var row struct {
		Datetime   time.Time `db:"datetime"`
		PairName   string    `db:"pair_name"`
		OpenPrice  float64   `db:"open_price"`
		HighPrice  float64   `db:"high_price"`
		LowPrice   float64   `db:"low_price"`
		ClosePrice float64   `db:"close_price"`
		EMA8       *float64  `db:"ema_8"`
		EMA21      *float64  `db:"ema_21"`
		ATR8       *float64  `db:"atr_8"`
		ATR21      *float64  `db:"atr_21"`
	}
	if err := r.db.GetContext(ctx, &row, q, pair, before); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last candle before: %w", err)
	}

	return &models.OHLCBar{
		Pair:        row.PairName,
		BucketStart: row.Datetime,
		Open:        row.OpenPrice,
		High:        row.HighPrice,
		Low:         row.LowPrice,
		Close:       row.ClosePrice,
		EMAFast:     row.EMA8,
		EMASlow:     row.EMA21,
		ATRFast:     row.ATR8,
		ATRSlow:     row.ATR21,
	}, nil
}

func (r *PreparedRepository) HourlyAvgRates(ctx context.Context, pair string, from, to time.Time) (map[time.Time]float64, error) {
	q := fmt.Sprintf(`SELECT date_trunc('hour', datetime) AS hour, AVG(close_price) AS rate
		FROM %s
		WHERE pair_name = $1 AND datetime >= $2 AND datetime < $3
		GROUP BY 1`, repository.TFM1.Table())

	rows, err := r.db.QueryxContext(ctx, q, pair, from, to)
	if err != nil {
		return nil, fmt.Errorf("hourly avg rates %s: %w", pair, err)
	}
	defer rows.Close()

	rates := make(map[time.Time]float64)
	for rows.Next() {
		var hour time.Time
		var rate float64
		if err := rows.Scan(&hour, &rate); err != nil {
			return nil, fmt.Errorf("scan hourly rate: %w", err)
		}
		rates[hour.UTC()] = rate
	}
	return rates, rows.Err()
}

func (r *PreparedRepository) HourlyUsage(ctx context.Context, from, to time.Time) ([]models.UsageSummary, error) {
	q := fmt.Sprintf(`SELECT datetime, msisdn, call_cost_zar, data_cost_zar, total_cost_zar
		FROM %s
		WHERE datetime >= $1 AND datetime < $2
		ORDER BY datetime`, repository.G1Hr.Table())

	var rows []struct {
		Datetime     time.Time `db:"datetime"`
		MSISDN       string    `db:"msisdn"`
		CallCostZAR  float64   `db:"call_cost_zar"`
		DataCostZAR  float64   `db:"data_cost_zar"`
		TotalCostZAR float64   `db:"total_cost_zar"`
	}
	if err := r.db.SelectContext(ctx, &rows, q, from, to); err != nil {
		return nil, fmt.Errorf("hourly usage: %w", err)
	}

	out := make([]models.UsageSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.UsageSummary{
			MSISDN:      row.MSISDN,
			BucketStart: row.Datetime.UTC(),
			CallCost:    row.CallCostZAR,
			DataCost:    row.DataCostZAR,
			TotalCost:   row.TotalCostZAR,
		})
	}
	return out, nil
}

func (r *PreparedRepository) LastBalanceBefore(ctx context.Context, accountID int, before time.Time) (float64, error) {
	q := fmt.Sprintf(`SELECT accumulated_cost_secondary
		FROM %s
		WHERE account_id = $1 AND datetime < $2
		ORDER BY datetime DESC
		LIMIT 1`, balanceTable)

	var accumulated float64
	if err := r.db.GetContext(ctx, &accumulated, q, accountID, before); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("last balance before: %w", err)
	}
	return accumulated, nil
}

func (r *PreparedRepository) MarkLayerProcessed(ctx context.Context, layer string, processedTo time.Time) error {
	const q = `INSERT INTO prepared_layers.processing_state (layer_name, last_processed_datetime, last_run_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (layer_name) DO UPDATE SET
			last_processed_datetime = EXCLUDED.last_processed_datetime,
			last_run_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, q, layer, processedTo); err != nil {
		return fmt.Errorf("mark layer processed: %w", err)
	}
	return nil
}

// runUpsert executes an upsert returning one `(xmax = 0)` row per touched
// row. Unchanged rows are not returned at all.
func (r *PreparedRepository) runUpsert(ctx context.Context, q string, args []interface{}) (repository.UpsertStats, error) {
	var stats repository.UpsertStats

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return stats, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Restated++
		}
	}
	return stats, rows.Err()
}

// placeholders renders "($n, $n+1, ...)" for one VALUES tuple starting after
// `used` already-allocated parameters.
func placeholders(used, cols int) string {
	parts := make([]string, cols)
	for i := 0; i < cols; i++ {
		parts[i] = fmt.Sprintf("$%d", used+i+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
