// Package service publishes domain events to RabbitMQ.  Errors are logged
// and returned so callers can ignore failures without interrupting the
// request that produced the event.
package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/parking-lot/internal/grid"
    q "github.com/iliyamo/parking-lot/internal/queue"
)

// TowPublisher sends VehicleTowedEvent messages to a durable queue on the
// default exchange.
type TowPublisher struct {
    url      string
    queue    string
    gridSize int
}

// NewTowPublisher returns a publisher for the broker at url.
func NewTowPublisher(url, queue string, gridSize int) *TowPublisher {
    return &TowPublisher{url: url, queue: queue, gridSize: gridSize}
}

// NewTowedEvent converts a committed tow into its wire event.
func NewTowedEvent(tow grid.TowEvent, gridSize int) q.VehicleTowedEvent {
    return q.VehicleTowedEvent{
        EventID:     uuid.NewString(),
        CellIndex:   tow.Index,
        GridSize:    gridSize,
        OwnerID:     tow.RecipientID,
        Vehicle:     tow.Vehicle,
        TowedByID:   tow.Actor.ID,
        TowedByName: tow.Actor.Username,
        Message:     tow.Text,
        TowedAt:     tow.At.UTC().Format(time.RFC3339),
    }
}

// PublishTowed publishes tow as a persistent JSON message over a
// connection opened for this call.
func (p *TowPublisher) PublishTowed(ctx context.Context, tow grid.TowEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    ev := NewTowedEvent(tow, p.gridSize)
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
