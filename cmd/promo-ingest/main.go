// Command promo-ingest loads promo codes found in at least two gzip code
// dumps into PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/promoingest"
	"github.com/xenking/denim-store/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		numFiles    int
		databaseURL string
		minFiles    int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promobaseN.gz files")
	flag.IntVar(&numFiles, "files", 3, "number of promobaseN.gz files")
	flag.IntVar(&minFiles, "min-files", 2, "files a code must appear in to be valid")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("promobase%d.gz", i+1))
	}

	cfg := promoingest.DefaultConfig()
	cfg.MinFiles = minFiles

	if err := run(ctx, cfg, files, databaseURL); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, cfg promoingest.Config, files []string, databaseURL string) error {
	lg := slog.Default()

	codes, err := promoingest.NewScanner(cfg, lg).Scan(ctx, files)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		slog.Info("no valid codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := promoingest.Write(ctx, postgres.NewPromoRepository(pool), codes, lg); err != nil {
		return errors.Wrap(err, "write promo codes")
	}
	return nil
}
