package merge

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/corpus"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/distance"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/metrics"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/storage"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/models"
)

// Mirror receives copies of the merged outputs.
type Mirror interface {
	Bucket() string
	PutFiles(ctx context.Context, bucket string, uploads []storage.Upload) (int, error)
}

// Sink receives the merged corpus as rows.
type Sink interface {
	UpsertCorpus(ctx context.Context, c models.Corpus) (int, error)
}

// Job finishes a merge: coordinate repair, distance re-derivation against
// the reference addresses, then the merged outputs.
type Job struct {
	geo       Geocoder
	outDir    string
	addresses []string
	logger    *slog.Logger
	metrics   *metrics.Set
	mirror    Mirror
	sink      Sink
}

type JobOption func(*Job)

func WithJobMetrics(m *metrics.Set) JobOption {
	return func(j *Job) { j.metrics = m }
}

func WithMirror(m Mirror) JobOption {
	return func(j *Job) { j.mirror = m }
}

func WithSink(s Sink) JobOption {
	return func(j *Job) { j.sink = s }
}

func NewJob(geo Geocoder, outDir string, addresses []string, logger *slog.Logger, opts ...JobOption) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Job{geo: geo, outDir: outDir, addresses: addresses, logger: logger}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Outcome reports what Finish did.
type Outcome struct {
	Result     Result
	Repair     RepairReport
	References int
	Recompute  distance.RecomputeReport
	JSONPath   string
	CSVPath    string
	MapPath    string
	Mirrored   int
	Rows       int
}

// Finish post-processes res and writes the merged JSON, merged CSV and map
// file into the output directory. Mirror and sink failures are logged and do
// not fail the job.
func (j *Job) Finish(ctx context.Context, res Result) (*Outcome, error) {
	out := &Outcome{
		Result:   res,
		JSONPath: filepath.Join(j.outDir, keys.MergedJSON),
		CSVPath:  filepath.Join(j.outDir, keys.MergedCSV),
		MapPath:  filepath.Join(j.outDir, keys.MapFile),
	}
	c := res.Corpus
	j.metrics.Merged(len(c), len(res.Missing), len(res.Extra))

	var err error
	out.Repair, err = RepairCoordinates(ctx, c, j.geo, j.logger)
	if err != nil {
		return out, err
	}
	j.metrics.Repairs(out.Repair.Repaired, out.Repair.Failed)

	refs, err := ReferencePoints(ctx, j.addresses, j.geo, j.logger)
	if err != nil {
		return out, err
	}
	out.References = len(refs)
	if len(refs) == 0 {
		j.logger.Warn("no reference coordinates, distances left as stored", "addresses", len(j.addresses))
	}
	out.Recompute = distance.Recompute(c, refs)
	j.logger.Info("distances recomputed", "references", len(refs), "updated", out.Recompute.Updated, "skipped", out.Recompute.Skipped)

	if err := corpus.SaveJSON(out.JSONPath, c); err != nil {
		return out, err
	}
	if err := corpus.SaveMergedCSV(out.CSVPath, c); err != nil {
		return out, err
	}
	if err := corpus.SaveJSON(out.MapPath, MapView(c)); err != nil {
		return out, err
	}
	j.logger.Info("merged outputs written", "records", len(c), "json", out.JSONPath, "csv", out.CSVPath, "map", out.MapPath)

	if j.mirror != nil {
		uploads := make([]storage.Upload, 0, 3)
		for _, p := range []string{out.JSONPath, out.CSVPath, out.MapPath} {
			uploads = append(uploads, storage.Upload{Path: p, Key: keys.MergedObject(p)})
		}
		out.Mirrored, err = j.mirror.PutFiles(ctx, j.mirror.Bucket(), uploads)
		if err != nil {
			j.logger.Warn("failed to mirror merged outputs", "stored", out.Mirrored, "err", err)
		}
	}
	if j.sink != nil {
		out.Rows, err = j.sink.UpsertCorpus(ctx, c)
		if err != nil {
			j.logger.Warn("failed to mirror merged corpus to database", "rows", out.Rows, "err", err)
		}
	}
	return out, nil
}
