package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/config"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/corpus"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/keys"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/logger"
	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/render"
)

func main() {
	in := flag.String("in", "", "merged corpus JSON (default $PROCESSED_PATH/"+keys.MergedJSON+")")
	out := flag.String("out", "", "HTML output (default $PROCESSED_PATH/map_files/"+keys.MapHTML+")")
	refs := flag.String("references", "", "reference places JSON (default $REFERENCE_PLACES_FILE)")
	logo := flag.String("logo", "", "icon URL for reference place markers")
	flag.Parse()

	if err := run(*in, *out, *refs, *logo); err != nil {
		slog.Error("mapper failed", "err", err)
		os.Exit(1)
	}
}

func run(in, out, refsFile, logo string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup()

	if in == "" {
		in = filepath.Join(cfg.ProcessedDir, keys.MergedJSON)
	}
	if out == "" {
		out = filepath.Join(cfg.MapDir(), keys.MapHTML)
	}
	if refsFile == "" {
		refsFile = cfg.ReferenceFile
	}

	c, err := corpus.Load(in)
	if err != nil {
		return err
	}
	if len(c) == 0 {
		log.Warn("merged corpus is empty, map will only show reference places", "path", in)
	}

	refs, err := render.LoadReferences(refsFile)
	if err != nil {
		log.Warn("reference places not loaded", "err", err)
		refs = nil
	}

	opts := render.DefaultOptions()
	opts.MinRating = cfg.MapMinRating
	opts.PriceLevels = cfg.MapPriceLevels
	opts.LogoURL = logo
	opts.Logger = log

	st, err := render.RenderFile(out, refs, c, opts)
	if err != nil {
		return err
	}
	log.Info("map rendered", "path", out, "references", st.References, "included", st.Included, "drawn", st.Drawn, "records", len(c))
	return nil
}
