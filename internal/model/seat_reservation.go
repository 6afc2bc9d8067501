package model

import "time"

// ReservationState is the admission state of a seat reservation.
type ReservationState string

const (
    // ReservationPending is a provisional hold that lapses at ExpiresAt.
    ReservationPending ReservationState = "PENDING"
    // ReservationConfirmed is an admitted seat.
    ReservationConfirmed ReservationState = "CONFIRMED"
    // ReservationReleased is kept for history and never counts toward capacity.
    ReservationReleased ReservationState = "RELEASED"
)

// SeatReservation is the single admission record for a (session, user)
// pair.  Rows are upserted, never duplicated.
//
// Fields:
//  ID        – primary key identifier.
//  OrgID     – organization copied from the session (nullable).
//  SessionID – live session the seat belongs to.
//  UserID    – holder of the seat.
//  State     – PENDING, CONFIRMED or RELEASED.
//  ExpiresAt – when a PENDING seat lapses or a CONFIRMED seat's grace ends.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last transition timestamp.
type SeatReservation struct {
    ID        uint64           `json:"id"`         // seat_reservations.id
    OrgID     *uint64          `json:"org_id"`     // seat_reservations.org_id (nullable)
    SessionID uint64           `json:"session_id"` // seat_reservations.session_id
    UserID    uint64           `json:"user_id"`    // seat_reservations.user_id
    State     ReservationState `json:"state"`      // seat_reservations.state
    ExpiresAt *time.Time       `json:"expires_at"` // seat_reservations.expires_at (nullable)
    CreatedAt time.Time        `json:"created_at"` // seat_reservations.created_at
    UpdatedAt time.Time        `json:"updated_at"` // seat_reservations.updated_at
}

// Occupies reports whether the reservation counts toward the session's
// capacity at the given instant.  Expired PENDING holds never count.
func (r SeatReservation) Occupies(now time.Time) bool {
    switch r.State {
    case ReservationConfirmed:
        return true
    case ReservationPending:
        return r.ExpiresAt != nil && r.ExpiresAt.After(now)
    }
    return false
}
