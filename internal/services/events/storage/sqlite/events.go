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

const eventColumns = `id, series_id, occurrence_date, is_series_exception, owner_id, title,
	description, location, event_date, capacity, going_count, maybe_count,
	invited_count, declined_count, waitlist_count, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		event          domain.Event
		seriesID       sql.NullString
		occurrenceDate sql.NullString
		isException    int
		eventDate      string
		capacity       sql.NullInt64
		status         string
		createdAt      int64
		updatedAt      int64
	)
	if err := row.Scan(
		&event.ID,
		&seriesID,
		&occurrenceDate,
		&isException,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Location,
		&eventDate,
		&capacity,
		&event.Counts.Going,
		&event.Counts.Maybe,
		&event.Counts.Invited,
		&event.Counts.Declined,
		&event.Counts.Waitlist,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Event{}, err
	}
	date, err := fromDate(eventDate)
	if err != nil {
		return domain.Event{}, err
	}
	event.Date = date
	if seriesID.Valid {
		event.SeriesID = seriesID.String
	}
	if occurrenceDate.Valid {
		slot, err := fromDate(occurrenceDate.String)
		if err != nil {
			return domain.Event{}, err
		}
		event.OccurrenceDate = &slot
	}
	event.IsSeriesException = isException != 0
	event.Capacity = intFromNull(capacity)
	event.Status = domain.EventStatus(status)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}

func validateEvent(event domain.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(event.OwnerID) == "" {
		return fmt.Errorf("event owner id is required")
	}
	if !domain.IsDate(event.Date) {
		return fmt.Errorf("event date is required")
	}
	if (event.SeriesID == "") != (event.OccurrenceDate == nil) {
		return fmt.Errorf("event series id and occurrence date must be set together")
	}
	if _, ok := domain.ParseEventStatus(string(event.Status)); !ok {
		return fmt.Errorf("event status %q is invalid", event.Status)
	}
	return nil
}

// GetEvent returns one event by id.
func (q queries) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if err := q.ready(ctx); err != nil {
		return domain.Event{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.Event{}, fmt.Errorf("event id is required")
	}
	event, err := scanEvent(q.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, storage.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// PutEvent inserts or fully replaces one event. Cached counts are owned by
// RefreshCounts and are not written here.
func (q queries) PutEvent(ctx context.Context, event domain.Event) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	_, err := q.q.ExecContext(
		ctx,
		`INSERT INTO events (id, series_id, occurrence_date, is_series_exception, owner_id, title,
		   description, location, event_date, capacity, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   is_series_exception = excluded.is_series_exception,
		   title = excluded.title,
		   description = excluded.description,
		   location = excluded.location,
		   event_date = excluded.event_date,
		   capacity = excluded.capacity,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		event.ID,
		nullableString(event.SeriesID),
		nullableDate(event.OccurrenceDate),
		boolToInt(event.IsSeriesException),
		event.OwnerID,
		event.Title,
		event.Description,
		event.Location,
		toDate(event.Date),
		nullableInt(event.Capacity),
		string(event.Status),
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// InsertSeriesEvent inserts a series instance unless its slot is taken.
func (q queries) InsertSeriesEvent(ctx context.Context, event domain.Event) (bool, error) {
	if err := q.ready(ctx); err != nil {
		return false, err
	}
	if err := validateEvent(event); err != nil {
		return false, err
	}
	if event.SeriesID == "" {
		return false, fmt.Errorf("series id is required")
	}
	result, err := q.q.ExecContext(
		ctx,
		`INSERT INTO events (id, series_id, occurrence_date, is_series_exception, owner_id, title,
		   description, location, event_date, capacity, status, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(series_id, occurrence_date) WHERE series_id IS NOT NULL DO NOTHING`,
		event.ID,
		event.SeriesID,
		nullableDate(event.OccurrenceDate),
		event.OwnerID,
		event.Title,
		event.Description,
		event.Location,
		toDate(event.Date),
		nullableInt(event.Capacity),
		string(event.Status),
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert series event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert series event: %w", err)
	}
	return affected > 0, nil
}

// DeleteEvent removes an event and its attendance ledger.
func (q queries) DeleteEvent(ctx context.Context, eventID string) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if _, err := q.q.ExecContext(ctx, `DELETE FROM attendance WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("delete event attendance: %w", err)
	}
	result, err := q.q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSeriesEvents returns every event of a series ordered by date.
func (q queries) ListSeriesEvents(ctx context.Context, seriesID string) ([]domain.Event, error) {
	if err := q.ready(ctx); err != nil {
		return nil, err
	}
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, fmt.Errorf("series id is required")
	}
	rows, err := q.q.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE series_id = ?
		 ORDER BY event_date ASC, id ASC`,
		seriesID,
	)
	if err != nil {
		return nil, fmt.Errorf("list series events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list series events: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list series events: %w", err)
	}
	return events, nil
}

// RefreshCounts recomputes the cached per-status counts from the ledger.
func (q queries) RefreshCounts(ctx context.Context, eventID string, updatedAt time.Time) (domain.Counts, error) {
	if err := q.ready(ctx); err != nil {
		return domain.Counts{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return domain.Counts{}, fmt.Errorf("event id is required")
	}
	result, err := q.q.ExecContext(
		ctx,
		`UPDATE events SET
		   going_count = (SELECT COUNT(*) FROM attendance WHERE event_id = events.id AND status = 'going'),
		   maybe_count = (SELECT COUNT(*) FROM attendance WHERE event_id = events.id AND status = 'maybe'),
		   invited_count = (SELECT COUNT(*) FROM attendance WHERE event_id = events.id AND status = 'invited'),
		   declined_count = (SELECT COUNT(*) FROM attendance WHERE event_id = events.id AND status = 'declined'),
		   waitlist_count = (SELECT COUNT(*) FROM attendance WHERE event_id = events.id AND status = 'waitlist'),
		   updated_at = ?
		 WHERE id = ?`,
		toMillis(updatedAt),
		eventID,
	)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("refresh counts: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.Counts{}, storage.ErrNotFound
	}

	var counts domain.Counts
	err = q.q.QueryRowContext(
		ctx,
		`SELECT going_count, maybe_count, invited_count, declined_count, waitlist_count
		 FROM events WHERE id = ?`,
		eventID,
	).Scan(&counts.Going, &counts.Maybe, &counts.Invited, &counts.Declined, &counts.Waitlist)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("refresh counts: %w", err)
	}
	return counts, nil
}
