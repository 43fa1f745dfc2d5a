// Command seed-db loads a development data set: catalog items from a JSON
// file plus a handful of discounts and taxes. Everything is upserted, so
// running it repeatedly is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelles/store-backend/internal/postgres"
)

type itemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

func main() {
	var (
		databaseURL string
		itemsFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&itemsFile, "items-file", "db/seed/items.json", "path to items JSON file")
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

	if err := run(ctx, databaseURL, itemsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, itemsFile string) error {
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

	if err := seedItems(ctx, pool, itemsFile); err != nil {
		return errors.Wrap(err, "seed items")
	}
	if err := seedPolicies(ctx, pool); err != nil {
		return errors.Wrap(err, "seed policies")
	}
	return nil
}

const upsertItemSQL = `
INSERT INTO items (id, name, description, price, currency)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency`

func seedItems(ctx context.Context, pool *pgxpool.Pool, itemsFile string) error {
	slog.Info("reading items file", slog.String("path", itemsFile))

	data, err := os.ReadFile(itemsFile)
	if err != nil {
		return errors.Wrap(err, "read items file")
	}

	var items []itemJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse items JSON")
	}

	slog.Info("upserting items", slog.Int("count", len(items)))

	for _, it := range items {
		if _, err := pool.Exec(ctx, upsertItemSQL,
			it.ID, it.Name, it.Description, it.Price, it.Currency,
		); err != nil {
			return errors.Wrapf(err, "upsert item %s", it.ID)
		}
		slog.Info("upserted item", slog.String("id", it.ID), slog.String("name", it.Name))
	}
	return nil
}

const (
	upsertDiscountSQL = `
INSERT INTO discounts (id, name, percent_off)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, percent_off = EXCLUDED.percent_off`

	upsertTaxSQL = `
INSERT INTO taxes (id, name, percent)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, percent = EXCLUDED.percent`
)

func seedPolicies(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding discounts and taxes")

	discounts := []struct {
		id, name   string
		percentOff int
	}{
		{"0c7ff0aa-4c1f-4f2d-a56f-0e6e0eb0f2a4", "Summer sale: 10% off", 10},
		{"5d0f3f77-9a2e-4be2-9f07-52d1c4b27c7e", "Half price", 50},
	}
	for _, d := range discounts {
		if _, err := pool.Exec(ctx, upsertDiscountSQL, d.id, d.name, d.percentOff); err != nil {
			return errors.Wrapf(err, "upsert discount %s", d.name)
		}
		slog.Info("upserted discount", slog.String("name", d.name))
	}

	taxes := []struct {
		id, name string
		percent  int
	}{
		{"3f5b97a3-53c8-4b55-a9ad-7ce0b7a8e9c1", "VAT", 20},
		{"8b2cf6bd-6f46-48c4-9f3b-9a60a0a6d4a2", "Sales tax", 8},
	}
	for _, t := range taxes {
		if _, err := pool.Exec(ctx, upsertTaxSQL, t.id, t.name, t.percent); err != nil {
			return errors.Wrapf(err, "upsert tax %s", t.name)
		}
		slog.Info("upserted tax", slog.String("name", t.name))
	}
	return nil
}
