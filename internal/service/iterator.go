// Package service turns a stream of storage messages into loaded objects.
// A message is either a run-completed event published by the researcher or
// a raw MinIO bucket notification; both resolve to a bucket and key that a
// pluggable LoaderFunc reads.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/minio/minio-go/v7/pkg/notification"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

var errNoObject = errors.New("message does not reference an object")

// Iterator consumes messages from a MessageIterator, resolves each to an
// ObjectRef, loads the object and yields it. It is generic over the loaded
// item type T.
//
// The Iterator does not manage the lifecycle of the underlying message source.
type Iterator[T any] struct {
	msgIterator MessageIterator
	loader      LoaderFunc[T]
	logger      *slog.Logger
}

func NewIterator[T any](iterator MessageIterator, loader LoaderFunc[T], logger *slog.Logger) *Iterator[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Iterator[T]{
		msgIterator: iterator,
		loader:      loader,
		logger:      logger,
	}
}

// Objects streams loaded objects until the message channel closes or ctx is
// done. Undecodable messages and failed loads are logged and skipped. The
// offset is committed once the receiver has taken the object.
func (it *Iterator[T]) Objects(ctx context.Context) <-chan *FetchedObject[T] {
	out := make(chan *FetchedObject[T])
	go func() {
		defer close(out)

		for msg := range it.msgIterator.Messages() {
			ref, err := DecodeRef(msg.Value)
			if err != nil {
				it.logger.Warn("skipping message", "offset", msg.Offset, "err", err)
				continue
			}
			data, err := it.loader(ctx, ref.Bucket, ref.Key)
			if err != nil {
				it.logger.Warn("failed to load object", "bucket", ref.Bucket, "key", ref.Key, "err", err)
				continue
			}

			select {
			case out <- &FetchedObject[T]{Data: data, Ref: ref}:
			case <-ctx.Done():
				return
			}

			if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
				it.logger.Warn("failed to commit offset", "offset", msg.Offset, "err", err)
			}
		}
	}()
	return out
}

// DecodeRef reads a run event, falling back to a bucket notification.
func DecodeRef(b []byte) (ObjectRef, error) {
	var ev models.RunEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ObjectRef{}, fmt.Errorf("decode message: %w", err)
	}
	if ev.Key != "" {
		if ev.Bucket == "" {
			return ObjectRef{}, errNoObject
		}
		return ObjectRef{Bucket: ev.Bucket, Key: ev.Key, RunID: ev.RunID}, nil
	}

	var info notification.Info
	if err := json.Unmarshal(b, &info); err != nil {
		return ObjectRef{}, fmt.Errorf("decode notification: %w", err)
	}
	if len(info.Records) == 0 {
		return ObjectRef{}, errNoObject
	}
	s3 := info.Records[0].S3
	key, err := url.QueryUnescape(s3.Object.Key)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("decode object key %q: %w", s3.Object.Key, err)
	}
	if s3.Bucket.Name == "" || key == "" {
		return ObjectRef{}, errNoObject
	}
	return ObjectRef{Bucket: s3.Bucket.Name, Key: key}, nil
}
