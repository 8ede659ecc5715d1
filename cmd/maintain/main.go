// Command maintain runs batch jobs over the promotion images.
//
//	maintain optimize-images [-delay 500ms] [-limit N] [-dry-run]
//	maintain migrate-cdn     [-delay 500ms] [-limit N] [-dry-run]
//	maintain fix-image-urls  [-limit N] [-dry-run]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/farejai/fareja/internal/cache"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/db"
	"github.com/farejai/fareja/internal/fetch"
	"github.com/farejai/fareja/internal/logger"
	"github.com/farejai/fareja/internal/maintenance"
	"github.com/farejai/fareja/internal/pipeline"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
)

const usage = `usage: maintain <command> [flags]

commands:
  optimize-images   store external product images through the configured storage
  migrate-cdn       upload local and external images to Cloudinary
  fix-image-urls    rewrite localhost and bare file name references
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := pflag.NewFlagSet(command, pflag.ExitOnError)
	delay := flags.Duration("delay", 500*time.Millisecond, "pause between network requests")
	limit := flags.Int("limit", 0, "process at most N promotions (0 means all)")
	dryRun := flags.Bool("dry-run", false, "report what would change without writing")
	flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("development", "info")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("command", command).Logger()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer database.Close()

	promoCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("cache")
	}
	svc := catalog.New(database, nil, promoCache, cfg.Location, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := maintenance.Options{
		Delay:   *delay,
		Limit:   *limit,
		DryRun:  *dryRun,
		BaseURL: cfg.BaseURL,
		Log:     log,
	}
	client := fetch.New(cfg.FetchTimeout)

	var rep maintenance.Report
	switch command {
	case "optimize-images":
		store, err := storage.FromConfig(cfg, client, log)
		if err != nil {
			log.Fatal().Err(err).Msg("image storage")
		}
		rep, err = maintenance.OptimizeImages(ctx, svc, imagePipeline(client, store, log), opts)
		exitOn(log, err)
	case "migrate-cdn":
		store, err := storage.NewCDNStore(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder, log)
		if err != nil {
			log.Fatal().Err(err).Msg("cdn storage")
		}
		rep, err = maintenance.MigrateCDN(ctx, svc, imagePipeline(client, store, log), opts)
		exitOn(log, err)
	case "fix-image-urls":
		rep, err = maintenance.FixImageURLs(ctx, svc, opts)
		exitOn(log, err)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	log.Info().
		Int("scanned", rep.Scanned).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Bool("dryRun", *dryRun).
		Msg("done")
}

func imagePipeline(client *fetch.Client, store storage.Store, log zerolog.Logger) *pipeline.Pipeline {
	return pipeline.New(scraper.New(client, log), store, log)
}

func exitOn(log zerolog.Logger, err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("aborted")
	}
}
