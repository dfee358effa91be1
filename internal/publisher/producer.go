package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"stonks-api/pkg/market"
	"stonks-api/pkg/scheduler"
)

// EventPriceUpdated is the event type published for every price step.
const EventPriceUpdated = "PRICE_UPDATED"

// PriceEvent is the payload written to Kafka.
type PriceEvent struct {
	EventType  string    `json:"event_type"`
	Symbol     string    `json:"symbol"`
	OldPrice   float64   `json:"old_price"`
	NewPrice   float64   `json:"new_price"`
	ChangePct  float64   `json:"change_pct"`
	Zone       string    `json:"zone"`
	TrendScore float64   `json:"trend_score"`
	Event      string    `json:"market_event,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageWriter is the subset of *kafka.Writer used by the producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes price updates keyed by symbol.
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer creates a Kafka producer for topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewProducerWithWriter(writer, topic)
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Topic returns the destination topic.
func (p *Producer) Topic() string { return p.topic }

// OnTick implements scheduler.Observer. All updates of a tick are written in one call.
func (p *Producer) OnTick(ctx context.Context, report scheduler.Report) error {
	if len(report.Updates) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(report.Updates))
	for _, upd := range report.Updates {
		msg, err := priceMessage(upd, report.Finished)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to kafka: %w", len(msgs), err)
	}
	return nil
}

func priceMessage(upd market.Update, fallback time.Time) (kafka.Message, error) {
	ts := upd.At
	if ts.IsZero() {
		ts = fallback
	}
	event := PriceEvent{
		EventType:  EventPriceUpdated,
		Symbol:     upd.Symbol,
		OldPrice:   upd.OldPrice,
		NewPrice:   upd.NewPrice,
		ChangePct:  upd.ChangePct,
		Zone:       string(upd.Zone),
		TrendScore: upd.TrendScore,
		Event:      upd.Event,
		Timestamp:  ts,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(upd.Symbol),
		Value: data,
	}, nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
