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
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/metrics"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/research"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/storage"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/graceful"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/kafkaclient"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/maps"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/pkg/transport"
)

func main() {
	addressesFile := flag.String("addresses", "", "label to address JSON file (default $ADDRESSES_FILE)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: researcher [-addresses file] [address ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*addressesFile, flag.Args()); err != nil {
		slog.Error("researcher failed", "err", err)
		os.Exit(1)
	}
}

func run(addressesFile string, args []string) error {
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

	addresses, err := resolveAddresses(cfg, addressesFile, args)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return errors.New("no addresses to research")
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	m := metrics.New()
	httpClient := transport.NewClient(transport.Options{
		Attempts: cfg.RetryMax,
		Backoff:  cfg.RetryBackoff,
		Timeout:  cfg.HTTPTimeout,
		Logger:   log,
	})
	client := maps.NewClient(httpClient, cfg.APIKey, maps.WithRecorder(m))

	opts := []research.Option{research.WithMetrics(m)}
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3Service(cfg.S3, log)
		if err != nil {
			return err
		}
		if _, err := s3.CreateBucket(ctx, s3.Bucket(), ""); err != nil {
			return err
		}
		opts = append(opts, research.WithObjectStore(s3))
	}
	if cfg.Kafka.Enabled() {
		if !cfg.S3.Enabled() {
			log.Warn("run events need the object store, events disabled")
		} else {
			log.Info("publishing run events", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
			pub := kafkaclient.NewPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic)
			defer pub.Close()
			opts = append(opts, research.WithPublisher(pub))
		}
	}

	start := time.Now()
	reports, failed, runErr := research.New(client, cfg, log, opts...).RunAll(ctx, addresses)
	places := 0
	for _, r := range reports {
		places += r.Places
	}
	log.Info("research finished",
		"addresses", len(addresses), "failed", failed, "places", places, "took", time.Since(start).Round(time.Second))

	pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pushCancel()
	if err := m.Push(pushCtx, cfg.PushgatewayURL, "researcher"); err != nil {
		log.Warn("metrics push failed", "err", err)
	}
	return runErr
}

// resolveAddresses prefers addresses given on the command line over the
// addresses file.
func resolveAddresses(cfg *config.Config, file string, args []string) ([]config.Address, error) {
	if len(args) > 0 {
		out := make([]config.Address, len(args))
		for i, a := range args {
			out[i] = config.Address{Label: a, Address: a}
		}
		return out, nil
	}
	if file == "" {
		file = cfg.AddressesFile
	}
	return config.LoadAddresses(file)
}
