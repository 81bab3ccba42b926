package publish

import (
	"context"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/getsentry/stackvis/internal/convert"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/nodetree"
)

type (
	// TreeKafkaMessage is one serialized tree. Live conversions produce one
	// message per timestamp.
	TreeKafkaMessage struct {
		ConversionID string               `json:"conversion_id"`
		Mode         convert.Mode         `json:"mode"`
		Timestamp    string               `json:"timestamp,omitempty"`
		Tree         *nodetree.Serialized `json:"tree"`
	}

	MessageWriter interface {
		WriteMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	Publisher struct {
		writer MessageWriter
	}
)

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		Topic:        topic,
		WriteTimeout: 3 * time.Second,
	}
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// GenerateKafkaMessageBatch builds one message per tree of the output, keyed
// by timestamp for live conversions.
func GenerateKafkaMessageBatch(conversionID string, out *convert.Output) ([]kafka.Message, error) {
	trees := out.Trees()
	messages := make([]kafka.Message, 0, len(trees))
	for _, kt := range trees {
		m := TreeKafkaMessage{
			ConversionID: conversionID,
			Mode:         out.Mode,
			Tree:         kt.Tree,
		}
		if out.Mode == convert.ModeLive {
			m.Timestamp = kt.Key
		}
		b, err := gojson.Marshal(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(conversionID + "/" + kt.Key),
			Value: b,
		})
	}
	return messages, nil
}

// Publish sends every tree of out and returns how many were sent. A live
// conversion without any sample yields errorutil.ErrNoResults.
func (p *Publisher) Publish(ctx context.Context, conversionID string, out *convert.Output) (int, error) {
	messages, err := GenerateKafkaMessageBatch(conversionID, out)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, errorutil.ErrNoResults
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return 0, err
	}
	return len(messages), nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
