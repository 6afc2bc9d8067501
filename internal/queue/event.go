// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Both queues are durable.
const (
    ModerationQueue = "moderation.signals"
    AttendanceQueue = "attendance.events"
)

// ModerationSignalEvent is published for every moderation action.  The
// realtime gateway consumes it and applies the effect (disconnect, mute)
// to the participant identified by TargetUID in Channel.
type ModerationSignalEvent struct {
    EventID      string  `json:"event_id"`
    Action       string  `json:"action"` // kick, mute, evict, lock, unlock
    SessionID    uint64  `json:"session_id"`
    OrgID        *uint64 `json:"org_id,omitempty"`
    Channel      string  `json:"channel"`
    ActorID      uint64  `json:"actor_id"`
    TargetUserID uint64  `json:"target_user_id,omitempty"`
    TargetUID    uint32  `json:"target_uid,omitempty"`
    Capacity     *int    `json:"capacity,omitempty"`
    IssuedAt     string  `json:"issued_at"`
}

// Attendance event types.
const (
    AttendanceJoined      = "joined"
    AttendanceLeft        = "left"
    AttendanceForceClosed = "force_closed"
)

// AttendanceEvent is published after an attendance transition commits.
// It carries enough data for analytics consumers to avoid querying the
// primary database.
type AttendanceEvent struct {
    EventID      string  `json:"event_id"`
    Type         string  `json:"type"`
    SessionID    uint64  `json:"session_id"`
    OrgID        *uint64 `json:"org_id,omitempty"`
    UserID       uint64  `json:"user_id"`
    JoinedAt     string  `json:"joined_at"`
    LeftAt       string  `json:"left_at,omitempty"`
    TotalSeconds int64   `json:"total_seconds"`
    OccurredAt   string  `json:"occurred_at"`
}
