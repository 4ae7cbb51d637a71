package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
)

// mockReader simulates the kafka-go Reader for unit testing.
type mockReader struct {
	messages   chan kafka.Message
	commitChan chan kafka.Message
	wg         sync.WaitGroup
	isClosed   bool
}

func newMockReader() *mockReader {
	return &mockReader{
		messages:   make(chan kafka.Message, 10),
		commitChan: make(chan kafka.Message, 10),
	}
}

// StartSimulatingConsumption produces count messages and then closes the
// stream, the way a closed reader ends.
func (mr *mockReader) StartSimulatingConsumption(count int) {
	mr.wg.Add(1)
	go func() {
		defer mr.wg.Done()
		defer close(mr.messages)

		for i := 0; i < count; i++ {
			mr.messages <- kafka.Message{
				Topic:  "run-events",
				Offset: int64(i),
				Value:  []byte(fmt.Sprintf(`{"run_id":"run-%d"}`, i)),
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
}

func (mr *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if mr.isClosed {
		return kafka.Message{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg, ok := <-mr.messages:
		if !ok {
			return kafka.Message{}, io.EOF
		}
		return msg, nil
	}
}

func (mr *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	if mr.isClosed {
		return errors.New("reader closed")
	}
	for _, msg := range msgs {
		mr.commitChan <- msg
	}
	return nil
}

func (mr *mockReader) Close() error {
	mr.isClosed = true
	close(mr.commitChan)
	return nil
}

func TestKafkaConsumerAndIterator_WithMock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reader := newMockReader()
	consumer := newConsumer(reader, logger.Discard())

	const expectedMessages = 3
	reader.StartSimulatingConsumption(expectedMessages)
	consumer.StartConsuming(ctx)
	iterator := consumer.NewIterator()

	received := 0
	for msg := range iterator.Messages() {
		want := fmt.Sprintf(`{"run_id":"run-%d"}`, received)
		if string(msg.Value) != want {
			t.Errorf("message %d = %q, want %q", received, msg.Value, want)
		}
		if err := iterator.CommitOffset(ctx, msg); err != nil {
			t.Errorf("CommitOffset() failed: %v", err)
		}
		received++
	}
	if received != expectedMessages {
		t.Errorf("received %d messages, want %d", received, expectedMessages)
	}

	consumer.Stop()
	consumer.Stop()

	committed := 0
	for range reader.commitChan {
		committed++
	}
	if committed != expectedMessages {
		t.Errorf("committed %d messages, want %d", committed, expectedMessages)
	}
}

func TestKafkaConsumer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reader := newMockReader()
	consumer := newConsumer(reader, logger.Discard())
	reader.StartSimulatingConsumption(100)
	consumer.StartConsuming(ctx)
	iterator := consumer.NewIterator()

	consumed := 0
	for i := 0; i < 5; i++ {
		select {
		case <-iterator.Messages():
			consumed++
		case <-ctx.Done():
			t.Fatal("context canceled unexpectedly")
		case <-time.After(500 * time.Millisecond):
			t.Fatal("timed out waiting for a message")
		}
	}

	consumer.Stop()

	remaining := 0
	for range iterator.Messages() {
		remaining++
	}
	if remaining > 0 {
		t.Errorf("got %d messages after stop", remaining)
	}
	if consumed != 5 {
		t.Errorf("consumed %d messages before stop, want 5", consumed)
	}
	if !reader.isClosed {
		t.Error("reader not closed after Stop")
	}
}

type mockWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublisher_PublishJSON(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		werr    error
		wantErr bool
		want    string
	}{
		{name: "encodes value", value: map[string]int{"places": 3}, want: `{"places":3}`},
		{name: "unencodable value", value: make(chan int), wantErr: true},
		{name: "writer failure", value: "x", werr: errors.New("broker down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{err: tt.werr}
			p := &Publisher{writer: w}
			err := p.PublishJSON(context.Background(), "run-1", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(w.written) != 1 || string(w.written[0].Key) != "run-1" || string(w.written[0].Value) != tt.want {
				t.Errorf("written = %+v", w.written)
			}
			_ = p.Close()
			if !w.closed {
				t.Error("writer not closed")
			}
		})
	}
}
