package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialposts/pkg/metrics"
	"socialposts/pkg/model"
	sn_trace "socialposts/pkg/trace"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const EXCHANGE = "social-events"

// routing keys audited by the consistency service
var AuditedKeys = []string{"post.*", "comment.*"}

// NewEvent stamps an event of the given kind with a fresh id and the span of ctx
func NewEvent(ctx context.Context, kind model.EventKind) model.Event {
	return model.Event{
		EventID:     uuid.NewString(),
		Kind:        kind,
		Timestamp:   time.Now().UnixMilli(),
		SpanContext: sn_trace.FromContext(ctx),
	}
}

func Decode(body []byte) (model.Event, error) {
	var event model.Event
	err := json.Unmarshal(body, &event)
	if err != nil {
		return model.Event{}, fmt.Errorf("error parsing event: %w", err)
	}
	if event.Kind == "" {
		return model.Event{}, fmt.Errorf("event %s has no kind", event.EventID)
	}
	return event, nil
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(EXCHANGE, "topic", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("error declaring exchange for rabbitmq: %w", err)
	}
	return nil
}

// Publisher sends events to the topic exchange using the event kind as routing key
type Publisher struct {
	mu   sync.Mutex
	ch   *amqp.Channel
	conn *amqp.Connection
}

func NewPublisher(ch *amqp.Channel, conn *amqp.Connection) (*Publisher, error) {
	if err := declareExchange(ch); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, conn: conn}, nil
}

func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.EventID,
		Body:        body,
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, EXCHANGE, string(event.Kind), false, false, msg)
	p.mu.Unlock()

	label := metrics.EventLabel{Kind: string(event.Kind)}
	if err != nil {
		metrics.PublishFailures.Get(label).Inc()
		return fmt.Errorf("error publishing %s event: %w", event.Kind, err)
	}
	metrics.PublishedEvents.Get(label).Inc()
	return nil
}

func (p *Publisher) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

// Consume binds queue to keys on the exchange and calls handle for every delivered event
// until ctx is done or the channel is closed
func Consume(ctx context.Context, ch *amqp.Channel, queue string, keys []string, handle func(context.Context, model.Event) error) error {
	if err := declareExchange(ch); err != nil {
		return err
	}
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("error declaring queue for rabbitmq: %w", err)
	}
	for _, key := range keys {
		err = ch.QueueBind(queue, key, EXCHANGE, false, nil)
		if err != nil {
			return fmt.Errorf("error binding queue for rabbitmq: %w", err)
		}
	}

	msgs, err := ch.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("error consuming queue: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq channel for queue %s was closed", queue)
			}
			if err := deliver(ctx, msg.Body, handle); err != nil {
				return err
			}
		}
	}
}

// deliver decodes body and passes it to handle. Undecodable messages are
// counted and dropped, only handle errors are returned.
func deliver(ctx context.Context, body []byte, handle func(context.Context, model.Event) error) error {
	event, err := Decode(body)
	if err != nil {
		metrics.DecodeFailures.Inc()
		return nil
	}
	return handle(ctx, event)
}
