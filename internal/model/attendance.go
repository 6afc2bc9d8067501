package model

import "time"

// AttendanceState is derived from the stored timestamps.
type AttendanceState string

const (
    AttendanceNew    AttendanceState = "NEW"
    AttendanceOpen   AttendanceState = "OPEN"
    AttendanceClosed AttendanceState = "CLOSED"
)

// Attendance is the latest dwell interval of a user in a session.  A
// re-join overwrites the interval rather than summing segments.
type Attendance struct {
    ID           uint64     `json:"id"`
    OrgID        *uint64    `json:"org_id"`
    SessionID    uint64     `json:"session_id"`
    UserID       uint64     `json:"user_id"`
    JoinedAt     time.Time  `json:"joined_at"`
    LeftAt       *time.Time `json:"left_at"`
    TotalSeconds int64      `json:"total_seconds"`
}

// State reports NEW for the zero value, OPEN while left_at is unset and
// CLOSED afterwards.
func (a Attendance) State() AttendanceState {
    switch {
    case a.ID == 0 && a.JoinedAt.IsZero():
        return AttendanceNew
    case a.LeftAt == nil:
        return AttendanceOpen
    default:
        return AttendanceClosed
    }
}

// DwellSeconds returns whole seconds between joined and left, clamped at
// zero so clock skew can never produce a negative total.
func DwellSeconds(joined, left time.Time) int64 {
    d := left.Sub(joined)
    if d <= 0 {
        return 0
    }
    return int64(d / time.Second)
}
