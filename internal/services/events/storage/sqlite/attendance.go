package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/powderhound/powderhound/internal/services/events/domain"
	"github.com/powderhound/powderhound/internal/services/events/storage"
)

const attendanceColumns = `event_id, user_id, status, waitlist_position, driver_seats, driver_note, responded_at`

func scanAttendance(row rowScanner) (domain.Attendance, error) {
	var (
		record      domain.Attendance
		status      string
		position    sql.NullInt64
		driverSeats sql.NullInt64
		driverNote  sql.NullString
		respondedAt int64
	)
	if err := row.Scan(
		&record.EventID,
		&record.UserID,
		&status,
		&position,
		&driverSeats,
		&driverNote,
		&respondedAt,
	); err != nil {
		return domain.Attendance{}, err
	}
	record.Status = domain.RSVPStatus(status)
	record.WaitlistPosition = intFromNull(position)
	if driverSeats.Valid || driverNote.Valid {
		record.DriverInfo = &domain.DriverInfo{
			Seats: int(driverSeats.Int64),
			Note:  driverNote.String,
		}
	}
	record.RespondedAt = fromMillis(respondedAt)
	return record, nil
}

// GetAttendance returns one user's record for an event.
func (q queries) GetAttendance(ctx context.Context, eventID, userID string) (domain.Attendance, error) {
	if err := q.ready(ctx); err != nil {
		return domain.Attendance{}, err
	}
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	if eventID == "" {
		return domain.Attendance{}, fmt.Errorf("event id is required")
	}
	if userID == "" {
		return domain.Attendance{}, fmt.Errorf("user id is required")
	}
	record, err := scanAttendance(q.q.QueryRowContext(
		ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE event_id = ? AND user_id = ?`,
		eventID,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attendance{}, storage.ErrNotFound
		}
		return domain.Attendance{}, fmt.Errorf("get attendance: %w", err)
	}
	return record, nil
}

// PutAttendance upserts one (event, user) record.
func (q queries) PutAttendance(ctx context.Context, record domain.Attendance) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	eventID := strings.TrimSpace(record.EventID)
	userID := strings.TrimSpace(record.UserID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, ok := domain.ParseRSVPStatus(string(record.Status)); !ok {
		return fmt.Errorf("attendance status %q is invalid", record.Status)
	}
	if (record.Status == domain.RSVPWaitlist) != (record.WaitlistPosition != nil) {
		return fmt.Errorf("waitlist position must be set exactly when status is waitlist")
	}

	var (
		driverSeats sql.NullInt64
		driverNote  sql.NullString
	)
	if record.DriverInfo != nil {
		driverSeats = sql.NullInt64{Int64: int64(record.DriverInfo.Seats), Valid: true}
		driverNote = sql.NullString{String: strings.TrimSpace(record.DriverInfo.Note), Valid: true}
	}
	_, err := q.q.ExecContext(
		ctx,
		`INSERT INTO attendance (event_id, user_id, status, waitlist_position, driver_seats, driver_note, responded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id, user_id) DO UPDATE SET
		   status = excluded.status,
		   waitlist_position = excluded.waitlist_position,
		   driver_seats = excluded.driver_seats,
		   driver_note = excluded.driver_note,
		   responded_at = excluded.responded_at`,
		eventID,
		userID,
		string(record.Status),
		nullableInt(record.WaitlistPosition),
		driverSeats,
		driverNote,
		toMillis(record.RespondedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put attendance: %w", err)
	}
	return nil
}

// DeleteAttendance removes one (event, user) record.
func (q queries) DeleteAttendance(ctx context.Context, eventID, userID string) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	result, err := q.q.ExecContext(ctx, `DELETE FROM attendance WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListAttendance returns one page of an event's ledger ordered by user id.
func (q queries) ListAttendance(ctx context.Context, eventID string, filter storage.AttendanceFilter) (storage.AttendancePage, error) {
	if err := q.ready(ctx); err != nil {
		return storage.AttendancePage{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.AttendancePage{}, fmt.Errorf("event id is required")
	}
	if filter.PageSize <= 0 {
		return storage.AttendancePage{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE event_id = ?`
	args := []any{eventID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if token := strings.TrimSpace(filter.PageToken); token != "" {
		query += ` AND user_id > ?`
		args = append(args, token)
	}
	query += ` ORDER BY user_id ASC LIMIT ?`
	args = append(args, filter.PageSize+1)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.AttendancePage{}, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	page := storage.AttendancePage{Records: make([]domain.Attendance, 0, filter.PageSize)}
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return storage.AttendancePage{}, fmt.Errorf("list attendance: %w", err)
		}
		page.Records = append(page.Records, record)
	}
	if err := rows.Err(); err != nil {
		return storage.AttendancePage{}, fmt.Errorf("list attendance: %w", err)
	}
	if len(page.Records) > filter.PageSize {
		page.NextPageToken = page.Records[filter.PageSize-1].UserID
		page.Records = page.Records[:filter.PageSize]
	}
	return page, nil
}

// CountGoing returns the live number of going records for an event.
func (q queries) CountGoing(ctx context.Context, eventID string) (int, error) {
	if err := q.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := q.q.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM attendance WHERE event_id = ? AND status = 'going'`,
		strings.TrimSpace(eventID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count going: %w", err)
	}
	return count, nil
}

// MaxWaitlistPosition returns the highest waitlist position, or 0.
func (q queries) MaxWaitlistPosition(ctx context.Context, eventID string) (int, error) {
	if err := q.ready(ctx); err != nil {
		return 0, err
	}
	var position int
	err := q.q.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(waitlist_position), 0) FROM attendance WHERE event_id = ?`,
		strings.TrimSpace(eventID),
	).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("max waitlist position: %w", err)
	}
	return position, nil
}

// FirstWaitlisted returns the record at the head of the waitlist.
func (q queries) FirstWaitlisted(ctx context.Context, eventID string) (domain.Attendance, error) {
	if err := q.ready(ctx); err != nil {
		return domain.Attendance{}, err
	}
	record, err := scanAttendance(q.q.QueryRowContext(
		ctx,
		`SELECT `+attendanceColumns+` FROM attendance
		 WHERE event_id = ? AND waitlist_position IS NOT NULL
		 ORDER BY waitlist_position ASC
		 LIMIT 1`,
		strings.TrimSpace(eventID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attendance{}, storage.ErrNotFound
		}
		return domain.Attendance{}, fmt.Errorf("first waitlisted: %w", err)
	}
	return record, nil
}

// CloseWaitlistGap shifts positions above position down by one. The shift
// passes through negative values so the per-event unique position index is
// never violated mid-statement.
func (q queries) CloseWaitlistGap(ctx context.Context, eventID string, position int) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if position < 1 {
		return fmt.Errorf("waitlist position must be positive")
	}
	if _, err := q.q.ExecContext(
		ctx,
		`UPDATE attendance SET waitlist_position = -(waitlist_position - 1)
		 WHERE event_id = ? AND waitlist_position > ?`,
		eventID,
		position,
	); err != nil {
		return fmt.Errorf("close waitlist gap: %w", err)
	}
	if _, err := q.q.ExecContext(
		ctx,
		`UPDATE attendance SET waitlist_position = -waitlist_position
		 WHERE event_id = ? AND waitlist_position < 0`,
		eventID,
	); err != nil {
		return fmt.Errorf("close waitlist gap: %w", err)
	}
	return nil
}
