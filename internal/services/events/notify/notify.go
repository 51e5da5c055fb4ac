// Package notify hands attendance and lifecycle changes to the notification
// dispatcher after the owning transaction commits.
package notify

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/powderhound/powderhound/internal/platform/timeouts"
)

const (
	// TopicRSVPCreated marks a user's first response to an event.
	TopicRSVPCreated = "events.rsvp.created"
	// TopicRSVPChanged marks a change of an existing response.
	TopicRSVPChanged = "events.rsvp.changed"
	// TopicWaitlistPromoted marks a waitlisted user moved to going.
	TopicWaitlistPromoted = "events.waitlist.promoted"
	// TopicEventCancelled marks an event soft-cancelled by its owner or series.
	TopicEventCancelled = "events.event.cancelled"
)

// ErrRecipientRequired indicates a notification without a recipient.
var ErrRecipientRequired = errors.New("notification recipient user id is required")

// Notification is one change a recipient may want to hear about.
type Notification struct {
	Topic           string
	RecipientUserID string
	EventID         string
	Status          string
	// DedupeKey lets the dispatcher collapse repeated deliveries.
	DedupeKey  string
	OccurredAt time.Time
}

// Dispatcher delivers notifications to the external notification service.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, notification Notification) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, notification Notification) error {
	return f(ctx, notification)
}

// LogDispatcher writes notifications to the process log.
type LogDispatcher struct {
	Logf func(format string, args ...any)
}

// Dispatch logs one notification.
func (d LogDispatcher) Dispatch(_ context.Context, notification Notification) error {
	if strings.TrimSpace(notification.RecipientUserID) == "" {
		return ErrRecipientRequired
	}
	logf := d.Logf
	if logf == nil {
		logf = log.Printf
	}
	logf("notify topic=%s user=%s event=%s status=%s", notification.Topic, notification.RecipientUserID, notification.EventID, notification.Status)
	return nil
}

// Publisher dispatches batches in the background. Failures are logged and
// never retried.
type Publisher struct {
	dispatcher Dispatcher
	timeout    time.Duration
	logf       func(format string, args ...any)
	wg         sync.WaitGroup
}

// NewPublisher builds a publisher. A nil dispatcher logs notifications.
func NewPublisher(dispatcher Dispatcher, logf func(format string, args ...any)) *Publisher {
	if logf == nil {
		logf = log.Printf
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logf: logf}
	}
	return &Publisher{
		dispatcher: dispatcher,
		timeout:    timeouts.NotifyDispatch,
		logf:       logf,
	}
}

// Publish dispatches notifications asynchronously. The caller's
// cancellation does not abort delivery once the write has committed.
func (p *Publisher) Publish(ctx context.Context, notifications ...Notification) {
	if p == nil || len(notifications) == 0 {
		return
	}
	batch := append([]Notification(nil), notifications...)
	detached := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		dispatchCtx, cancel := context.WithTimeout(detached, p.timeout)
		defer cancel()
		for _, notification := range batch {
			if err := p.dispatcher.Dispatch(dispatchCtx, notification); err != nil {
				p.logf("notify dispatch failed topic=%s user=%s event=%s: %v", notification.Topic, notification.RecipientUserID, notification.EventID, err)
			}
		}
	}()
}

// Wait blocks until every in-flight batch finishes.
func (p *Publisher) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}
