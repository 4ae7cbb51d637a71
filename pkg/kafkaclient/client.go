// Package kafkaclient wraps segmentio/kafka-go with a channel based consumer
// and a small publisher for run events.
package kafkaclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaReader is the part of *kafka.Reader the consumer needs.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads messages in its own goroutine and hands them out on a
// channel. Offsets are committed explicitly by the receiver.
type KafkaConsumer struct {
	reader      KafkaReader
	doneChan    chan struct{}
	wg          sync.WaitGroup
	messageChan chan kafka.Message
	logger      *slog.Logger
	stopOnce    sync.Once
}

// NewKafkaConsumer builds a consumer-group reader with auto-commit off.
func NewKafkaConsumer(topic, groupID, broker string, logger *slog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
	return newConsumer(reader, logger)
}

func newConsumer(reader KafkaReader, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaConsumer{
		reader:      reader,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
		logger:      logger,
	}
}

func (kc *KafkaConsumer) Messages() <-chan kafka.Message {
	return kc.messageChan
}

func (kc *KafkaConsumer) CommitOffset(ctx context.Context, msg kafka.Message) error {
	kc.logger.Debug("committing offset", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	return kc.reader.CommitMessages(ctx, msg)
}

// isClosed matches the errors a reader returns once it can never produce
// another message.
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}

// StartConsuming runs the read loop until ctx is done, Stop is called or the
// reader is closed. The message channel is closed when the loop exits.
func (kc *KafkaConsumer) StartConsuming(ctx context.Context) {
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		defer close(kc.messageChan)

		kc.logger.Info("kafka consumer loop started")
		for {
			select {
			case <-ctx.Done():
				kc.logger.Info("context canceled, stopping consumer loop")
				return
			case <-kc.doneChan:
				kc.logger.Info("shutdown requested, stopping consumer loop")
				return
			default:
			}

			msg, err := kc.reader.ReadMessage(ctx)
			if err != nil {
				if isClosed(err) || ctx.Err() != nil {
					return
				}
				kc.logger.Warn("error reading message", "err", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				case <-kc.doneChan:
					return
				}
				continue
			}

			select {
			case kc.messageChan <- msg:
				kc.logger.Debug("message received", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			case <-ctx.Done():
				return
			case <-kc.doneChan:
				return
			}
		}
	}()
}

// Stop ends the read loop and closes the reader. It is safe to call twice.
func (kc *KafkaConsumer) Stop() {
	kc.stopOnce.Do(func() {
		close(kc.doneChan)
		kc.wg.Wait()
		if err := kc.reader.Close(); err != nil {
			kc.logger.Warn("failed to close kafka reader", "err", err)
		}
		kc.logger.Info("kafka consumer stopped")
	})
}

// Iterator exposes the consumer's messages with explicit commits.
type Iterator struct {
	messages <-chan kafka.Message
	consumer *KafkaConsumer
}

func (kc *KafkaConsumer) NewIterator() *Iterator {
	return &Iterator{messages: kc.messageChan, consumer: kc}
}

func (it *Iterator) Messages() <-chan kafka.Message {
	return it.messages
}

func (it *Iterator) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return it.consumer.CommitOffset(ctx, msg)
}
