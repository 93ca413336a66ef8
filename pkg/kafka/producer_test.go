package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("slot-1").
		WithValue(map[string]string{"slot_id": "slot-1"}).
		WithEventType("slot.booked").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return msg
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "slot-events", "")

	if err := p.Publish(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message written, got %d", len(w.messages))
	}
	got := w.messages[0]
	if string(got.Key) != "slot-1" {
		t.Errorf("key = %q, want slot-1", got.Key)
	}
	if header(got, HeaderEventType) != "slot.booked" {
		t.Errorf("event type header = %q", header(got, HeaderEventType))
	}
	if header(got, HeaderEventID) == "" {
		t.Error("expected an event id header")
	}
}

func TestProducer_PublishRejectsInvalid(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "slot-events", "")

	if err := p.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}
}

func TestProducer_FailureGoesToDLQ(t *testing.T) {
	cause := errors.New("connection refused")
	w := &fakeWriter{err: cause}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "slot-events", "slot-events-dlq")

	msg := buildMessage(t)
	err := p.Publish(context.Background(), msg)
	if !errors.Is(err, cause) {
		t.Fatalf("expected original error, got %v", err)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dlq.messages))
	}
	if header(dlq.messages[0], HeaderOriginalTopic) != "slot-events" {
		t.Errorf("missing original topic header")
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("caller's headers must not be mutated")
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "slot-events", "")
	var order []string
	for _, name := range []string{"outer", "inner"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			if msg.Topic != "slot-events" {
				t.Errorf("middleware saw topic %q", msg.Topic)
			}
			return next(ctx, msg)
		})
	}

	if err := p.Publish(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "slot-events", "")

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	if err := p.Publish(context.Background(), buildMessage(t)); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMessageBuilder_BadValue(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{errors.New("dial tcp: Connection Refused"), true},
		{ErrProducerClosed, false},
		{errors.New("unknown topic or partition"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
