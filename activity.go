package guestalbum

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess       ActivityEventType = "session.login.success"
	ActivityEventLoginFailure       ActivityEventType = "session.login.failure"
	ActivityEventRegistered         ActivityEventType = "session.registered"
	ActivityEventLogout             ActivityEventType = "session.logout"
	ActivityEventLogoutNotifyFailed ActivityEventType = "session.logout.notify_failed"
	ActivityEventSessionRestored    ActivityEventType = "session.restored"
	ActivityEventSessionDropped     ActivityEventType = "session.dropped"
	ActivityEventProfileUpdated     ActivityEventType = "session.profile.updated"
	ActivityEventPasswordChanged    ActivityEventType = "session.password.changed"
	ActivityEventUploadRejected     ActivityEventType = "upload.rejected"
	ActivityEventUploadSubmitted    ActivityEventType = "upload.submitted"
	ActivityEventUploadFailed       ActivityEventType = "upload.failed"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     int64
	AccessCode string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events. Sinks run best effort: errors are
// logged and never change the outcome of the operation that emitted them.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		logger.Warn("activity sink error for %s: %v", event.EventType, err)
	}
}
