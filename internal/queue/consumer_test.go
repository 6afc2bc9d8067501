package queue

import (
    "encoding/json"
    "os"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAttendanceLogAppendsLines(t *testing.T) {
    sink := NewAttendanceLog(t.TempDir())

    joined, err := json.Marshal(AttendanceEvent{
        EventID: "e1", Type: AttendanceJoined, SessionID: 3, UserID: 9,
        JoinedAt: "2026-01-01T10:00:00Z", OccurredAt: "2026-01-01T10:00:00Z",
    })
    require.NoError(t, err)
    left, err := json.Marshal(AttendanceEvent{
        EventID: "e2", Type: AttendanceLeft, SessionID: 3, UserID: 9,
        JoinedAt: "2026-01-01T10:00:00Z", LeftAt: "2026-01-01T10:02:05Z", TotalSeconds: 125,
        OccurredAt: "2026-01-01T10:02:05Z",
    })
    require.NoError(t, err)

    require.NoError(t, sink.Handle(joined))
    require.NoError(t, sink.Handle(left))

    data, err := os.ReadFile(sink.Path())
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Contains(t, lines[0], "Attendance joined | session_id=3 | user_id=9")
    assert.Contains(t, lines[0], "left_at=-")
    assert.Contains(t, lines[1], "total_seconds=125")
}

func TestAttendanceLogRejectsBadPayload(t *testing.T) {
    sink := NewAttendanceLog(t.TempDir())
    assert.Error(t, sink.Handle([]byte("{not json")))
    assert.Error(t, sink.Handle([]byte(`{"type":"joined"}`)))
    _, err := os.Stat(sink.Path())
    assert.True(t, os.IsNotExist(err))
}
