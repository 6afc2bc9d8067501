package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to RabbitMQ.  It dials per publish, so it holds
// no connection state and is safe for concurrent use.  Errors are logged
// and returned so that callers can choose to ignore them without
// interrupting the request flow.
type Publisher struct {
    url string
    log *slog.Logger
}

// NewPublisher returns a publisher for url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
    if logger == nil {
        logger = slog.Default()
    }
    return &Publisher{url: url, log: logger}
}

// PublishModeration publishes to the moderation.signals queue.
func (p *Publisher) PublishModeration(ctx context.Context, ev ModerationSignalEvent) error {
    return p.publish(ctx, ModerationQueue, ev)
}

// PublishAttendance publishes to the attendance.events queue.
func (p *Publisher) PublishAttendance(ctx context.Context, ev AttendanceEvent) error {
    return p.publish(ctx, AttendanceQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", "queue", queue, "err", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", "queue", queue, "err", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue, // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    ); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", "queue", queue, "err", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        p.log.Warn("rabbitmq: marshal event failed", "queue", queue, "err", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",    // default exchange
        queue, // routing key = queue name
        false, // mandatory
        false, // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", "queue", queue, "err", err)
        return err
    }
    return nil
}
