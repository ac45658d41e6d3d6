package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"holdem-live/holdem"
)

const DefaultHandQueue = "holdem.hand.completed"

// AMQPArchive publishes each completed hand as a persistent JSON message. The connection is
// dialed lazily and re-dialed after the broker drops it.
type AMQPArchive struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPArchive(url, queue string) *AMQPArchive {
	if queue == "" {
		queue = DefaultHandQueue
	}
	return &AMQPArchive{url: url, queue: queue}
}

func (a *AMQPArchive) channel() (*amqp.Channel, error) {
	if a.ch != nil && !a.ch.IsClosed() {
		return a.ch, nil
	}
	a.closeLocked()

	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		a.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	a.conn, a.ch = conn, ch
	return ch, nil
}

func (a *AMQPArchive) AppendHand(ctx context.Context, rec *holdem.CompletedHand) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ch, err := a.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.HandID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", a.queue, false, false, pub); err != nil {
		a.closeLocked()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (a *AMQPArchive) closeLocked() {
	if a.ch != nil {
		_ = a.ch.Close()
		a.ch = nil
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *AMQPArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
	return nil
}

// MultiArchive fans a record out to every archive. All of them are attempted.
type MultiArchive []HandArchive

func (m MultiArchive) AppendHand(ctx context.Context, rec *holdem.CompletedHand) error {
	var errs []error
	for _, a := range m {
		if err := a.AppendHand(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hand asks every readable archive in order and returns the first hit.
func (m MultiArchive) Hand(ctx context.Context, handID string) (*holdem.CompletedHand, error) {
	for _, a := range m {
		r, ok := a.(HandReader)
		if !ok {
			continue
		}
		rec, err := r.Hand(ctx, handID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return rec, err
	}
	return nil, ErrNotFound
}

func (m MultiArchive) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
