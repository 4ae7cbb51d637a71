package storage

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
)

type fakeStore struct {
	buckets map[string]bool
	objects map[string]string
	puts    []minio.PutObjectOptions
	failKey string
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: map[string]bool{}, objects: map[string]string{}}
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if key == f.failKey {
		return minio.UploadInfo{}, errors.New("upload refused")
	}
	f.objects[bucket+"/"+key] = filePath
	f.puts = append(f.puts, opts)
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func (f *fakeStore) GetObject(_ context.Context, bucket, key string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	v, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func (f *fakeStore) ListObjects(_ context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.objects))
	for k := range f.objects {
		name := strings.TrimPrefix(k, bucket+"/")
		if name != k && strings.HasPrefix(name, opts.Prefix) {
			ch <- minio.ObjectInfo{Key: name}
		}
	}
	close(ch)
	return ch
}

func newTestService(store objectStore) *S3Service {
	return &S3Service{client: store, bucket: "runs", logger: logger.Discard()}
}

func TestS3Service_CreateBucket(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	for i := 0; i < 2; i++ {
		ok, err := s.CreateBucket(context.Background(), "runs", "")
		if err != nil || !ok {
			t.Fatalf("CreateBucket() = %v, %v", ok, err)
		}
	}
	if !store.buckets["runs"] {
		t.Error("bucket not created")
	}
}

func TestS3Service_PutFiles(t *testing.T) {
	store := newFakeStore()
	store.failKey = "runs/bad.json"
	s := newTestService(store)

	n, err := s.PutFiles(context.Background(), "runs", []Upload{
		{Path: "/tmp/a.json", Key: "runs/a.json"},
		{Path: "/tmp/bad.json", Key: "runs/bad.json"},
		{Path: "/tmp/a.csv", Key: "runs/a.csv"},
	})
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}
	if err == nil || !strings.Contains(err.Error(), "upload refused") {
		t.Errorf("err = %v, want upload failure", err)
	}
	if got := store.puts[0].ContentType; got != "application/json" {
		t.Errorf("json content type = %q", got)
	}
	if got := store.puts[1].ContentType; got != "text/csv; charset=utf-8" {
		t.Errorf("csv content type = %q", got)
	}
}

func TestS3Service_GetObjectBytes(t *testing.T) {
	store := newFakeStore()
	store.objects["runs/runs/a.json"] = `{"p1":{}}`
	s := newTestService(store)

	b, err := s.GetObjectBytes(context.Background(), "runs", "runs/a.json")
	if err != nil || string(b) != `{"p1":{}}` {
		t.Fatalf("GetObjectBytes() = %q, %v", b, err)
	}

	_, err = s.GetObjectBytes(context.Background(), "runs", "runs/missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object err = %v, want ErrNotFound", err)
	}
}

func TestS3Service_ListKeys(t *testing.T) {
	store := newFakeStore()
	for _, k := range []string{"runs/b.json", "runs/a.json", "merged/x.json"} {
		store.objects["runs/"+k] = ""
	}
	store.objects["other/runs/c.json"] = ""
	s := newTestService(store)

	got, err := s.ListKeys(context.Background(), "runs", "runs/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"runs/a.json", "runs/b.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListKeys() = %v, want %v", got, want)
	}
}
