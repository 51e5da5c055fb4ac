// Package storage defines persistence contracts for trip events, series,
// and attendance.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/powderhound/powderhound/internal/services/events/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a write hit a uniqueness constraint.
	ErrAlreadyExists = errors.New("record already exists")
)

// AttendancePage is one page of an event's attendance ledger.
type AttendancePage struct {
	Records       []domain.Attendance
	NextPageToken string
}

// AttendanceFilter narrows ListAttendance.
type AttendanceFilter struct {
	Status    domain.RSVPStatus // blank means every status
	PageSize  int
	PageToken string
}

// Reader exposes the read paths shared by the store and its transactions.
type Reader interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetSeries(ctx context.Context, seriesID string) (domain.Series, error)
	GetAttendance(ctx context.Context, eventID, userID string) (domain.Attendance, error)
	ListAttendance(ctx context.Context, eventID string, filter AttendanceFilter) (AttendancePage, error)
	// ListSeriesEvents returns every event of a series ordered by date.
	ListSeriesEvents(ctx context.Context, seriesID string) ([]domain.Event, error)
	ListActiveSeriesIDs(ctx context.Context) ([]string, error)
}

// Tx is the write surface available inside one atomic unit of work.
type Tx interface {
	Reader

	PutEvent(ctx context.Context, event domain.Event) error
	// InsertSeriesEvent creates a materialized instance unless its
	// (series, occurrence date) slot is already filled. It reports whether a
	// row was written.
	InsertSeriesEvent(ctx context.Context, event domain.Event) (bool, error)
	// DeleteEvent removes an event together with its attendance ledger.
	DeleteEvent(ctx context.Context, eventID string) error
	PutSeries(ctx context.Context, series domain.Series) error

	PutAttendance(ctx context.Context, record domain.Attendance) error
	DeleteAttendance(ctx context.Context, eventID, userID string) error
	CountGoing(ctx context.Context, eventID string) (int, error)
	MaxWaitlistPosition(ctx context.Context, eventID string) (int, error)
	// FirstWaitlisted returns the lowest-positioned waitlist record, or
	// ErrNotFound when the waitlist is empty.
	FirstWaitlisted(ctx context.Context, eventID string) (domain.Attendance, error)
	// CloseWaitlistGap shifts every waitlist position above position down by one.
	CloseWaitlistGap(ctx context.Context, eventID string, position int) error
	// RefreshCounts recomputes the event's cached counts from the ledger.
	RefreshCounts(ctx context.Context, eventID string, updatedAt time.Time) (domain.Counts, error)
}

// Store is the events persistence boundary.
type Store interface {
	Reader
	// InTx runs fn inside one write transaction. fn's error rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
