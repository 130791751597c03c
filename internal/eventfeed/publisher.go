// Package eventfeed publishes one structured event per completed search so
// operators can watch traffic and upstream quota burn. Publishing is best
// effort: a broker outage never fails a search.
package eventfeed

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event describes one completed search. Landmarks counts the landmarks this
// search contributed, not the accumulated pool size.
type Event struct {
	ID            string        `json:"id"`
	Activity      string        `json:"activity"`
	Regions       int           `json:"regions"`
	Landmarks     int           `json:"landmarks"`
	FailedRegions int           `json:"failedRegions"`
	Duration      time.Duration `json:"durationNs"`
	At            time.Time     `json:"at"`
}

// Publisher emits search events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// MessageWriter is the slice of kafka.Writer the publisher needs. It exists
// so unit tests can substitute a fake.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes search events to one Kafka topic.
type KafkaPublisher struct {
	writer MessageWriter
	logger zerolog.Logger
}

// NewKafka builds a publisher for the given broker and topic.
func NewKafka(broker, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish assigns the event an id and timestamp if missing and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("search event not published")
		return err
	}
	p.logger.Debug().Str("event_id", ev.ID).Str("activity", ev.Activity).Msg("search event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards every event; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
