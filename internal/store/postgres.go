// Package store mirrors the merged corpus into Postgres so it can be queried
// with SQL. The JSON files stay the source of truth.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// DefaultBatchSize is how many upserts are queued per round trip.
const DefaultBatchSize = 200

const schemaSQL = `
CREATE TABLE IF NOT EXISTS places (
	place_id             text PRIMARY KEY,
	name                 text,
	rating               double precision,
	price_level          integer,
	lat                  double precision,
	lng                  double precision,
	crow_fly_distance_km double precision,
	source_address_file  text,
	last_updated         text,
	data                 jsonb NOT NULL,
	synced_at            timestamptz NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO places
	(place_id, name, rating, price_level, lat, lng, crow_fly_distance_km,
	 source_address_file, last_updated, data)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (place_id) DO UPDATE SET
	name = EXCLUDED.name,
	rating = EXCLUDED.rating,
	price_level = EXCLUDED.price_level,
	lat = EXCLUDED.lat,
	lng = EXCLUDED.lng,
	crow_fly_distance_km = EXCLUDED.crow_fly_distance_km,
	source_address_file = EXCLUDED.source_address_file,
	last_updated = EXCLUDED.last_updated,
	data = EXCLUDED.data,
	synced_at = now()`

// batchSender is the part of *pgxpool.Pool the store uses.
type batchSender interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PlaceStore struct {
	db        batchSender
	pool      *pgxpool.Pool
	batchSize int
	logger    *slog.Logger
}

// NewPlaceStore opens a pool for dsn and checks the connection.
func NewPlaceStore(ctx context.Context, dsn string, logger *slog.Logger) (*PlaceStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse PG_DSN: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := newPlaceStore(pool, logger)
	s.pool = pool
	return s, nil
}

func newPlaceStore(db batchSender, logger *slog.Logger) *PlaceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaceStore{db: db, batchSize: DefaultBatchSize, logger: logger}
}

func (s *PlaceStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the places table if needed.
func (s *PlaceStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create places table: %w", err)
	}
	return nil
}

// UpsertCorpus writes every record, replacing rows with the same place_id.
// It returns the number of rows written before any error.
func (s *PlaceStore) UpsertCorpus(ctx context.Context, c models.Corpus) (int, error) {
	ids := c.IDs()
	total := 0
	for i := 0; i < len(ids); i += s.batchSize {
		j := min(i+s.batchSize, len(ids))

		b := &pgx.Batch{}
		for _, id := range ids[i:j] {
			args, err := placeRow(c[id])
			if err != nil {
				return total, err
			}
			b.Queue(upsertSQL, args...)
		}

		n, err := s.send(ctx, b)
		total += n
		if err != nil {
			return total, err
		}
	}
	s.logger.Info("mirrored corpus to postgres", "rows", total)
	return total, nil
}

func (s *PlaceStore) send(ctx context.Context, b *pgx.Batch) (int, error) {
	br := s.db.SendBatch(ctx, b)
	total := 0
	for k := 0; k < b.Len(); k++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return total, fmt.Errorf("upsert place: %w", err)
		}
		total += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return total, fmt.Errorf("close batch: %w", err)
	}
	return total, nil
}

// placeRow flattens p into the upsert arguments. Absent values become NULL.
func placeRow(p *models.Place) ([]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode place %s: %w", p.PlaceID, err)
	}
	var lat, lng *float64
	if c, ok := p.Coordinate(); ok {
		lat, lng = &c.Lat, &c.Lng
	}
	return []any{
		p.PlaceID,
		nullString(p.Name),
		p.Rating,
		p.PriceLevel,
		lat,
		lng,
		p.CrowFlyDistanceKm,
		nullString(p.SourceAddressFile),
		nullString(p.LastUpdated),
		data,
	}, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
