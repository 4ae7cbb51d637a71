package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/config"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/merge"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/metrics"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/service"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/storage"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/store"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/graceful"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/kafkaclient"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/location"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

const (
	sourceDir    = "dir"
	sourceBucket = "bucket"
)

func main() {
	source := flag.String("source", sourceDir, "where run files are read from: dir or bucket")
	watch := flag.Bool("watch", false, "after the first merge, re-merge on every run event")
	flag.Parse()

	if err := run(*source, *watch); err != nil {
		slog.Error("merger failed", "err", err)
		os.Exit(1)
	}
}

func run(source string, watch bool) error {
	if source != sourceDir && source != sourceBucket {
		return fmt.Errorf("unknown -source %q", source)
	}
	if watch {
		source = sourceBucket
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup()
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	m := metrics.New()
	defer pushMetrics(m, cfg.PushgatewayURL, log)

	httpClient := transport.NewClient(transport.Options{
		Attempts: cfg.RetryMax,
		Backoff:  cfg.RetryBackoff,
		Timeout:  cfg.HTTPTimeout,
		Logger:   log,
	})
	client := maps.NewClient(httpClient, cfg.APIKey, maps.WithRecorder(m))

	var addresses []string
	if addrs, err := config.LoadAddresses(cfg.AddressesFile); err != nil {
		log.Warn("addresses file not loaded, distances will not be re-derived", "err", err)
	} else {
		addresses = config.AddressStrings(addrs)
	}

	opts := []merge.JobOption{merge.WithJobMetrics(m)}
	var s3 *storage.S3Service
	if cfg.S3.Enabled() {
		if s3, err = storage.NewS3Service(cfg.S3, log); err != nil {
			return err
		}
		opts = append(opts, merge.WithMirror(s3))
	} else if source == sourceBucket {
		return errors.New("-source bucket and -watch need the object store settings")
	}
	if cfg.Postgres != "" {
		db, err := store.NewPlaceStore(ctx, cfg.Postgres, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, merge.WithSink(db))
	}
	var geo merge.Geocoder = client
	if cfg.NominatimURL != "" {
		log.Info("coordinate repair falls back to nominatim", "url", cfg.NominatimURL)
		geo = merge.Fallback{client, location.NewClient(httpClient, cfg.NominatimURL)}
	}
	job := merge.NewJob(geo, cfg.ProcessedDir, addresses, log, opts...)

	start := time.Now()
	if source == sourceDir {
		res, err := mergeDir(cfg.DropDir, log)
		if err != nil {
			return err
		}
		if _, err := job.Finish(ctx, res); err != nil {
			return err
		}
		log.Info("merge finished", "records", len(res.Corpus), "sources", len(res.Sources), "took", time.Since(start).Round(time.Millisecond))
		return nil
	}

	sources := merge.NewSources()
	if err := loadBucket(ctx, s3, sources, log); err != nil {
		return err
	}
	res := sources.Merge(log)
	if _, err := job.Finish(ctx, res); err != nil {
		return err
	}
	log.Info("merge finished", "records", len(res.Corpus), "sources", len(res.Sources), "took", time.Since(start).Round(time.Millisecond))

	if !watch {
		return nil
	}
	if !cfg.Kafka.Enabled() {
		return errors.New("-watch needs KAFKA_BROKER and KAFKA_TOPIC")
	}
	return watchEvents(ctx, cfg.Kafka, s3, sources, job, log)
}

func mergeDir(dir string, log *slog.Logger) (merge.Result, error) {
	files, err := merge.RunFiles(dir)
	if err != nil {
		return merge.Result{}, err
	}
	log.Info("merging run files", "dir", dir, "files", len(files))

	e := merge.NewEngine(log)
	if failed := e.MergeFiles(files); failed > 0 {
		log.Warn("some run files were skipped", "failed", failed)
	}
	return e.Result(), nil
}

// loadBucket reads every mirrored run file. Unreadable objects are skipped.
func loadBucket(ctx context.Context, s3 *storage.S3Service, sources *merge.Sources, log *slog.Logger) error {
	objects, err := s3.ListKeys(ctx, s3.Bucket(), keys.RunsPrefix())
	if err != nil {
		return err
	}
	for _, key := range objects {
		if !keys.IsRunFile(key) {
			continue
		}
		b, err := s3.GetObjectBytes(ctx, s3.Bucket(), key)
		if err == nil {
			err = sources.PutBytes(merge.SourceName(key), b)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("skipping run object", "key", key, "err", err)
		}
	}
	log.Info("run objects loaded", "bucket", s3.Bucket(), "sources", sources.Len())
	return nil
}

// watchEvents re-merges each time a run file lands, until ctx is done.
func watchEvents(ctx context.Context, kc config.KafkaConfig, s3 *storage.S3Service, sources *merge.Sources, job *merge.Job, log *slog.Logger) error {
	log.Info("watching run events", "broker", kc.Broker, "topic", kc.Topic, "group", kc.GroupID)
	consumer := kafkaclient.NewKafkaConsumer(kc.Topic, kc.GroupID, kc.Broker, log)
	consumer.StartConsuming(ctx)
	defer consumer.Stop()

	it := service.NewIterator[[]byte](consumer, s3.GetObjectBytes, log)
	for obj := range it.Objects(ctx) {
		if !keys.IsRunFile(obj.Ref.Key) {
			log.Debug("ignoring object", "key", obj.Ref.Key)
			continue
		}
		if err := sources.PutBytes(merge.SourceName(obj.Ref.Key), obj.Data); err != nil {
			log.Error("skipping run object", "key", obj.Ref.Key, "err", err)
			continue
		}
		res := sources.Merge(log)
		if _, err := job.Finish(ctx, res); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("re-merge failed", "run_id", obj.Ref.RunID, "err", err)
			continue
		}
		log.Info("re-merged after run event", "run_id", obj.Ref.RunID, "key", obj.Ref.Key, "records", len(res.Corpus))
	}
	return nil
}

func pushMetrics(m *metrics.Set, url string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, url, "merger"); err != nil {
		log.Warn("metrics push failed", "err", err)
	}
}
