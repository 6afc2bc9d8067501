package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/queue"
)

// EventPublisher forwards domain events to the broker.
type EventPublisher interface {
	PublishModeration(ctx context.Context, ev queue.ModerationSignalEvent) error
	PublishAttendance(ctx context.Context, ev queue.AttendanceEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishModeration(context.Context, queue.ModerationSignalEvent) error {
	return nil
}
func (NopPublisher) PublishAttendance(context.Context, queue.AttendanceEvent) error { return nil }

// publishTimeout bounds a single background publish.
const publishTimeout = 5 * time.Second

// emitter publishes events after the owning transaction committed.  Each
// publish runs in its own goroutine so a slow broker never holds up a
// request; failures are logged and otherwise ignored.
type emitter struct {
	pub EventPublisher
	log *slog.Logger
}

func (e emitter) attendance(ev queue.AttendanceEvent) {
	if e.pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.pub.PublishAttendance(ctx, ev); err != nil {
			e.log.Warn("attendance event not published", "type", ev.Type, "session_id", ev.SessionID, "err", err)
		}
	}()
}

func (e emitter) moderation(ev queue.ModerationSignalEvent) {
	if e.pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.pub.PublishModeration(ctx, ev); err != nil {
			e.log.Warn("moderation signal not published", "action", ev.Action, "session_id", ev.SessionID, "err", err)
		}
	}()
}

func rfc3339(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func attendanceEvent(kind string, a *model.Attendance, at time.Time) queue.AttendanceEvent {
	ev := queue.AttendanceEvent{
		EventID:      uuid.NewString(),
		Type:         kind,
		SessionID:    a.SessionID,
		OrgID:        a.OrgID,
		UserID:       a.UserID,
		JoinedAt:     rfc3339(a.JoinedAt),
		TotalSeconds: a.TotalSeconds,
		OccurredAt:   rfc3339(at),
	}
	if a.LeftAt != nil {
		ev.LeftAt = rfc3339(*a.LeftAt)
	}
	return ev
}
