package repository

import (
    "database/sql"
    "time"
)

// nullID converts an optional id into a driver value.
func nullID(id *uint64) any {
    if id == nil {
        return nil
    }
    return int64(*id)
}

// idPtr converts a scanned nullable id back into *uint64.
func idPtr(n sql.NullInt64) *uint64 {
    if !n.Valid {
        return nil
    }
    v := uint64(n.Int64)
    return &v
}

func timePtr(n sql.NullTime) *time.Time {
    if !n.Valid {
        return nil
    }
    t := n.Time.UTC()
    return &t
}

// nullTime converts an optional timestamp to the stored string form.
func nullTime(t *time.Time) any {
    if t == nil {
        return nil
    }
    return ts(*t)
}

// ts formats a timestamp as "2006-01-02 15:04:05" in UTC, which is the
// form every DATETIME column is written in.
func ts(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") }
