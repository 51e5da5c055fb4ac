package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

// GetSeries returns one series definition by id.
func (q queries) GetSeries(ctx context.Context, seriesID string) (domain.Series, error) {
	if err := q.ready(ctx); err != nil {
		return domain.Series{}, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return domain.Series{}, fmt.Errorf("series id is required")
	}

	var (
		series    domain.Series
		capacity  sql.NullInt64
		kind      string
		weekday   sql.NullInt64
		startDate string
		endDate   sql.NullString
		active    int
		createdAt int64
		updatedAt int64
	)
	err := q.q.QueryRowContext(
		ctx,
		`SELECT id, owner_id, title, description, location, capacity, recurrence_type,
		   weekday, nth, day_of_month, start_date, end_date, window_months, active,
		   created_at, updated_at
		 FROM series WHERE id = ?`,
		seriesID,
	).Scan(
		&series.ID,
		&series.OwnerID,
		&series.Attributes.Title,
		&series.Attributes.Description,
		&series.Attributes.Location,
		&capacity,
		&kind,
		&weekday,
		&series.Recurrence.Params.Nth,
		&series.Recurrence.Params.DayOfMonth,
		&startDate,
		&endDate,
		&series.Recurrence.WindowMonths,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Series{}, storage.ErrNotFound
		}
		return domain.Series{}, fmt.Errorf("get series: %w", err)
	}

	series.Attributes.Capacity = intFromNull(capacity)
	series.Recurrence.Type = domain.RecurrenceType(kind)
	if weekday.Valid {
		series.Recurrence.Params.Weekday = domain.WeekdayPtr(time.Weekday(weekday.Int64))
	}
	if series.Recurrence.StartDate, err = fromDate(startDate); err != nil {
		return domain.Series{}, fmt.Errorf("get series: %w", err)
	}
	if endDate.Valid {
		end, err := fromDate(endDate.String)
		if err != nil {
			return domain.Series{}, fmt.Errorf("get series: %w", err)
		}
		series.Recurrence.EndDate = &end
	}
	series.Active = active != 0
	series.CreatedAt = fromMillis(createdAt)
	series.UpdatedAt = fromMillis(updatedAt)
	return series, nil
}

// PutSeries inserts or replaces one series definition.
func (q queries) PutSeries(ctx context.Context, series domain.Series) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(series.ID) == "" {
		return fmt.Errorf("series id is required")
	}
	if strings.TrimSpace(series.OwnerID) == "" {
		return fmt.Errorf("series owner id is required")
	}
	if !domain.IsDate(series.Recurrence.StartDate) {
		return fmt.Errorf("series start date is required")
	}

	var weekday sql.NullInt64
	if series.Recurrence.Params.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*series.Recurrence.Params.Weekday), Valid: true}
	}
	_, err := q.q.ExecContext(
		ctx,
		`INSERT INTO series (id, owner_id, title, description, location, capacity,
		   recurrence_type, weekday, nth, day_of_month, start_date, end_date,
		   window_months, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   location = excluded.location,
		   capacity = excluded.capacity,
		   recurrence_type = excluded.recurrence_type,
		   weekday = excluded.weekday,
		   nth = excluded.nth,
		   day_of_month = excluded.day_of_month,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   window_months = excluded.window_months,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		series.ID,
		series.OwnerID,
		series.Attributes.Title,
		series.Attributes.Description,
		series.Attributes.Location,
		nullableInt(series.Attributes.Capacity),
		string(series.Recurrence.Type),
		weekday,
		series.Recurrence.Params.Nth,
		series.Recurrence.Params.DayOfMonth,
		toDate(series.Recurrence.StartDate),
		nullableDate(series.Recurrence.EndDate),
		series.Recurrence.Window(),
		boolToInt(series.Active),
		toMillis(series.CreatedAt),
		toMillis(series.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put series: %w", err)
	}
	return nil
}

// ListActiveSeriesIDs returns the ids of every active series.
func (q queries) ListActiveSeriesIDs(ctx context.Context) ([]string, error) {
	if err := q.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `SELECT id FROM series WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var seriesID string
		if err := rows.Scan(&seriesID); err != nil {
			return nil, fmt.Errorf("list active series: %w", err)
		}
		ids = append(ids, seriesID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}
	return ids, nil
}
