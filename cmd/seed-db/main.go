// Command seed-db applies the schema and loads promo codes into PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/db"
	"github.com/xenking/denim-store/internal/domain/promo"
	"github.com/xenking/denim-store/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		promosFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&promosFile, "promos-file", "", "path to a promo codes JSON file (embedded defaults when empty)")
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

	if err := run(ctx, databaseURL, promosFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, promosFile string) error {
	rules, err := readPromos(promosFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedPromos(ctx, postgres.NewPromoRepository(pool), rules); err != nil {
		return errors.Wrap(err, "seed promos")
	}

	return nil
}

func readPromos(path string) ([]promo.Rule, error) {
	data := db.Promos
	if path != "" {
		slog.Info("reading promos file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read promos file")
		}
	}
	return promo.DecodeRules(data)
}

type promoWriter interface {
	Upsert(ctx context.Context, rule promo.Rule) error
}

func seedPromos(ctx context.Context, repo promoWriter, rules []promo.Rule) error {
	slog.Info("upserting promo codes", slog.Int("count", len(rules)))

	for _, r := range rules {
		if err := repo.Upsert(ctx, r); err != nil {
			return errors.Wrapf(err, "upsert promo %s", r.Code)
		}

		slog.Info("upserted promo", slog.String("code", r.Code), slog.String("description", r.Description))
	}

	return nil
}
