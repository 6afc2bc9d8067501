package model

import "time"

// LiveSession is a scheduled live class.  ChannelName is globally unique
// and is the identity used by the realtime transport.  MaxParticipants
// is the admission capacity; zero means the session is locked.
//
// Fields:
//  ID               – primary key identifier.
//  OrgID            – owning organization; nil for public sessions.
//  Title            – human readable title.
//  ChannelName      – unique transport channel derived from the title.
//  OwnerID          – user who created the session.
//  StartTime        – scheduled start.
//  DurationMin      – planned duration in minutes.
//  MaxParticipants  – capacity enforced at admission time.
//  RecordingEnabled – whether the transport should record.
//  CreatedAt        – creation timestamp.
type LiveSession struct {
    ID               uint64    `json:"id"`                // live_sessions.id
    OrgID            *uint64   `json:"org_id"`            // live_sessions.org_id (nullable)
    Title            string    `json:"title"`             // live_sessions.title
    ChannelName      string    `json:"channel_name"`      // live_sessions.channel_name
    OwnerID          uint64    `json:"owner_id"`          // live_sessions.owner_id
    StartTime        time.Time `json:"start_time"`        // live_sessions.start_time
    DurationMin      int       `json:"duration_minutes"`  // live_sessions.duration_min
    MaxParticipants  int       `json:"max_participants"`  // live_sessions.max_participants
    RecordingEnabled bool      `json:"recording_enabled"` // live_sessions.recording_enabled
    CreatedAt        time.Time `json:"created_at"`        // live_sessions.created_at
}

// Locked reports whether the session currently admits nobody new.
func (s LiveSession) Locked() bool { return s.MaxParticipants <= 0 }

// SameOrg reports whether the session belongs to the given organization.
// A public session matches only a nil organization id.
func (s LiveSession) SameOrg(orgID *uint64) bool {
    if s.OrgID == nil || orgID == nil {
        return s.OrgID == nil && orgID == nil
    }
    return *s.OrgID == *orgID
}
