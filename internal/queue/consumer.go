package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AttendanceLog appends attendance events to a file, one line per event.
// It is safe for concurrent use.
type AttendanceLog struct {
    mu   sync.Mutex
    path string
}

// NewAttendanceLog writes to dir/attendance.log.
func NewAttendanceLog(dir string) *AttendanceLog {
    return &AttendanceLog{path: filepath.Join(dir, "attendance.log")}
}

// Path returns the log file location.
func (l *AttendanceLog) Path() string { return l.path }

// Handle decodes one message body and appends it to the log.
func (l *AttendanceLog) Handle(body []byte) error {
    var ev AttendanceEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.SessionID == 0 || ev.UserID == 0 || ev.Type == "" {
        return errors.New("incomplete attendance event")
    }
    l.mu.Lock()
    defer l.mu.Unlock()

    if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    left := ev.LeftAt
    if left == "" {
        left = "-"
    }
    line := fmt.Sprintf("[%s] Attendance %s | session_id=%d | user_id=%d | joined_at=%s | left_at=%s | total_seconds=%d\n",
        ev.OccurredAt, ev.Type, ev.SessionID, ev.UserID, ev.JoinedAt, left, ev.TotalSeconds)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// StartAttendanceConsumer connects to RabbitMQ, declares the
// attendance.events queue and hands each delivery to sink.  It reconnects
// with exponential backoff and returns only when ctx is cancelled.
// Messages that fail to process are rejected without requeue so a bad
// payload cannot loop.
func StartAttendanceConsumer(ctx context.Context, url string, sink *AttendanceLog, logger *slog.Logger) error {
    if logger == nil {
        logger = slog.Default()
    }
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn("attendance-consumer: failed to dial broker", "err", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, sink, logger)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn("attendance-consumer: consume loop ended; reconnecting", "err", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *AttendanceLog, logger *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn("attendance-consumer: set QoS failed", "err", err)
    }

    if _, err = ch.QueueDeclare(AttendanceQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(AttendanceQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := sink.Handle(d.Body); err != nil {
                logger.Warn("attendance-consumer: handle message failed", "err", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
