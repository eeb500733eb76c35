package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
)

const (
	usageTable = "cdr_data.cdr_data"
	voiceTable = "cdr_data.cdr_voice"
)

// CDRRepository reads raw data and voice events from Postgres. Columns are
// scanned null-tolerant; rows with missing fields come back with zero values
// and the aggregators decide whether to skip them.
type CDRRepository struct {
	db *sqlx.DB
}

// NewCDRRepository creates a usage/voice event reader.
func NewCDRRepository(db *sqlx.DB) repository.UsageReader {
	return &CDRRepository{db: db}
}

type usageRow struct {
	MSISDN    sql.NullString `db:"msisdn"`
	TowerID   sql.NullInt64  `db:"tower_id"`
	UpBytes   sql.NullInt64  `db:"up_bytes"`
	DownBytes sql.NullInt64  `db:"down_bytes"`
	DataType  sql.NullString `db:"data_type"`
	EventTime sql.NullTime   `db:"event_datetime"`
}

type voiceRow struct {
	MSISDN      sql.NullString `db:"msisdn"`
	TowerID     sql.NullInt64  `db:"tower_id"`
	CallType    sql.NullString `db:"call_type"`
	DurationSec sql.NullInt64  `db:"call_duration_sec"`
	StartTime   sql.NullTime   `db:"start_time"`
}

func (r *CDRRepository) ReadUsageEvents(ctx context.Context, from, to time.Time) ([]models.UsageEvent, error) {
	q := fmt.Sprintf(`SELECT msisdn, tower_id, up_bytes, down_bytes, data_type, event_datetime
		FROM %s
		WHERE event_datetime >= $1 AND event_datetime < $2
		ORDER BY event_datetime`, usageTable)

	var rows []usageRow
	if err := r.db.SelectContext(ctx, &rows, q, from, to); err != nil {
		return nil, fmt.Errorf("read usage events: %w", err)
	}

	events := make([]models.UsageEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.UsageEvent{
			MSISDN:    row.MSISDN.String,
			TowerID:   int(row.TowerID.Int64),
			UpBytes:   row.UpBytes.Int64,
			DownBytes: row.DownBytes.Int64,
			DataType:  row.DataType.String,
			EventTime: row.EventTime.Time,
		})
	}
	return events, nil
}

func (r *CDRRepository) ReadVoiceEvents(ctx context.Context, from, to time.Time) ([]models.VoiceEvent, error) {
	q := fmt.Sprintf(`SELECT msisdn, tower_id, call_type, call_duration_sec, start_time
		FROM %s
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time`, voiceTable)

	var rows []voiceRow
	if err := r.db.SelectContext(ctx, &rows, q, from, to); err != nil {
		return nil, fmt.Errorf("read voice events: %w", err)
	}

	events := make([]models.VoiceEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.VoiceEvent{
			MSISDN:      row.MSISDN.String,
			TowerID:     int(row.TowerID.Int64),
			CallType:    row.CallType.String,
			DurationSec: row.DurationSec.Int64,
			StartTime:   row.StartTime.Time,
		})
	}
	return events, nil
}
