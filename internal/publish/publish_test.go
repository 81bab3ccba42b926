package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/getsentry/stackvis/internal/convert"
	"github.com/getsentry/stackvis/internal/errorutil"
	"github.com/getsentry/stackvis/internal/testutil"
)

type recordingWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishLive(t *testing.T) {
	out, err := convert.Convert(strings.NewReader(testutil.Lines(
		"app 1/1 [0] 3.1",
		"\t1 a (m)",
		"",
		"app 1/1 [0] 4.1",
		"\t1 b (m)",
		"",
	)), convert.Options{Live: true})
	if err != nil {
		t.Fatal(err)
	}

	w := &recordingWriter{}
	p := NewPublisher(w)
	n, err := p.Publish(context.Background(), "c1", out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}

	keys := []string{}
	timestamps := []string{}
	for _, m := range w.messages {
		keys = append(keys, string(m.Key))
		var decoded TreeKafkaMessage
		if err := jsoniter.Unmarshal(m.Value, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Mode != convert.ModeLive || decoded.ConversionID != "c1" {
			t.Fatalf("unexpected message %+v", decoded)
		}
		if decoded.Tree == nil || decoded.Tree.Name != "root" {
			t.Fatal("expected a tree in the message")
		}
		timestamps = append(timestamps, decoded.Timestamp)
	}
	if diff := testutil.Diff(keys, []string{"c1/3", "c1/4"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if diff := testutil.Diff(timestamps, []string{"3", "4"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Fatal("expected the writer to be closed")
	}
}

func TestPublishSingleTree(t *testing.T) {
	out, err := convert.Convert(strings.NewReader("a;b 1 0\n"), convert.Options{Folded: true})
	if err != nil {
		t.Fatal(err)
	}
	messages, err := GenerateKafkaMessageBatch("c2", out)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if string(messages[0].Key) != "c2/root" {
		t.Fatalf("unexpected key %q", messages[0].Key)
	}
	var decoded map[string]interface{}
	if err := jsoniter.Unmarshal(messages[0].Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, exists := decoded["timestamp"]; exists {
		t.Fatal("single trees carry no timestamp")
	}
}

func TestPublishEmptyRecording(t *testing.T) {
	out, err := convert.Convert(strings.NewReader(""), convert.Options{Live: true})
	if err != nil {
		t.Fatal(err)
	}
	w := &recordingWriter{}
	n, err := NewPublisher(w).Publish(context.Background(), "c3", out)
	if !errors.Is(err, errorutil.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if n != 0 || len(w.messages) != 0 {
		t.Fatalf("expected nothing to be sent, got %d", len(w.messages))
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "stackvis-trees")
	defer w.Close()
	if w.Topic != "stackvis-trees" {
		t.Fatalf("unexpected topic %q", w.Topic)
	}
}
