package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
)

const ticksTable = "forex_data.forex_ticks"

// TickRepository reads raw bid/ask ticks from Postgres.
type TickRepository struct {
	db *sqlx.DB
}

// NewTickRepository creates a tick reader over the raw forex ticks table.
func NewTickRepository(db *sqlx.DB) repository.TickReader {
	return &TickRepository{db: db}
}

type tickRow struct {
	Timestamp time.Time `db:"timestamp"`
	PairName  string    `db:"pair_name"`
	BidPrice  float64   `db:"bid_price"`
	AskPrice  float64   `db:"ask_price"`
	Spread    float64   `db:"spread"`
}

func (r *TickRepository) ReadTicks(ctx context.Context, pair string, from, to time.Time) ([]models.RawTick, error) {
	q := fmt.Sprintf(`SELECT timestamp, pair_name, bid_price, ask_price, COALESCE(spread, 0) AS spread
		FROM %s
		WHERE pair_name = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp`, ticksTable)

	var rows []tickRow
	if err := r.db.SelectContext(ctx, &rows, q, pair, from, to); err != nil {
		return nil, fmt.Errorf("read ticks %s: %w", pair, err)
	}

	ticks := make([]models.RawTick, 0, len(rows))
	for _, row := range rows {
		ticks = append(ticks, models.RawTick{
			Pair:      row.PairName,
			Timestamp: row.Timestamp,
			Bid:       row.BidPrice,
			Ask:       row.AskPrice,
			Spread:    row.Spread,
		})
	}
	return ticks, nil
}
