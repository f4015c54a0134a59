// Package broker mirrors events between service instances over a RabbitMQ
// fanout exchange. Relayed events reach the local hub only; the instance
// that committed a change owns its feed entries.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotel-kitchen-backend/config"
	"hotel-kitchen-backend/internal/event"
)

// OriginHeader carries the publishing instance id.
const OriginHeader = "x-origin"

const outboxSize = 256

// Bridge relays local events out and foreign events in.
type Bridge struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	origin   string
	local    event.Publisher
	out      chan event.Event
}

// Dial connects to the broker and declares the exchange. local receives
// events published by other instances.
func Dial(cfg config.BrokerConfig, local event.Publisher) (*Bridge, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open broker channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Bridge{
		conn:     conn,
		ch:       ch,
		exchange: cfg.Exchange,
		origin:   cfg.InstanceID,
		local:    local,
		out:      make(chan event.Event, outboxSize),
	}, nil
}

// Publish implements event.Publisher. A full outbox drops the event.
func (b *Bridge) Publish(e event.Event) {
	select {
	case b.out <- e:
	default:
		log.Printf("broker outbox full, dropping %s event", e.Type)
	}
}

// Run relays events until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	q, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare relay queue: %w", err)
	}
	if err := b.ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind relay queue: %w", err)
	}
	deliveries, err := b.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume relay queue: %w", err)
	}

	log.Printf("broker bridge relaying through %s as %s", b.exchange, b.origin)
	for {
		select {
		case e := <-b.out:
			msg, err := Encode(e, b.origin)
			if err != nil {
				log.Printf("error encoding %s event: %v", e.Type, err)
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = b.ch.PublishWithContext(pubCtx, b.exchange, "", false, false, msg)
			cancel()
			if err != nil {
				log.Printf("error relaying %s event: %v", e.Type, err)
			}
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("relay queue closed")
			}
			e, foreign, err := Decode(d, b.origin)
			if err != nil {
				log.Printf("error decoding relayed event: %v", err)
				continue
			}
			if foreign {
				b.local.Publish(e)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the channel and connection.
func (b *Bridge) Close() {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

// Encode builds the broker message for e.
func Encode(e event.Event, origin string) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   e.OccurredAt,
		Type:        string(e.Type),
		Headers:     amqp.Table{OriginHeader: origin},
		Body:        body,
	}, nil
}

// Decode parses a delivery. foreign is false for messages this instance
// published itself.
func Decode(d amqp.Delivery, self string) (e event.Event, foreign bool, err error) {
	if origin, _ := d.Headers[OriginHeader].(string); origin == self {
		return event.Event{}, false, nil
	}
	if err := json.Unmarshal(d.Body, &e); err != nil {
		return event.Event{}, false, fmt.Errorf("invalid event body: %w", err)
	}
	if !e.Type.Known() {
		return event.Event{}, false, fmt.Errorf("unknown event type %q", e.Type)
	}
	return e, true, nil
}
