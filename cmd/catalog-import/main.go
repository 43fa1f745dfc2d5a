// Command catalog-import loads gzipped supplier catalog feeds into the items
// table. Feeds are JSON lines, one item per line:
//
//	{"id": "...", "name": "...", "description": "...", "price": "19.99", "currency": "usd"}
//
// Feeds from different suppliers overlap heavily, so item names are
// pre-screened through a bloom filter: a name that was probably seen before
// is skipped. The filter's false positive rate is configurable and trades a
// tiny number of wrongly skipped items for constant memory on feeds with
// hundreds of millions of lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/postgres"
)

const progressEvery = 1_000_000

func main() {
	var (
		databaseURL string
		capacity    uint
		fpr         float64
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "capacity", 10_000_000, "expected total number of feed lines")
	flag.Float64Var(&fpr, "fpr", 0.001, "bloom filter false positive rate")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("no feed files given: pass one or more .gz feeds as arguments")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args(), capacity, fpr); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, feeds []string, capacity uint, fpr float64) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp := &importer{
		db:     pool,
		filter: bloom.NewWithEstimates(capacity, fpr),
	}

	if err := imp.importFeeds(ctx, feeds); err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Uint64("imported", imp.imported.Load()),
		slog.Uint64("duplicates", imp.duplicates.Load()),
		slog.Uint64("invalid", imp.invalid.Load()),
	)
	return nil
}

// execer is the slice of pgxpool.Pool the writer needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type importer struct {
	db execer

	mu     sync.Mutex
	filter *bloom.BloomFilter

	imported   atomic.Uint64
	duplicates atomic.Uint64
	invalid    atomic.Uint64
}

// importFeeds streams every feed through one channel into a single writer.
// Writer and feeders share an errgroup context, so a failed upsert cancels
// the feeders instead of leaving them blocked on a full channel.
func (imp *importer) importFeeds(ctx context.Context, feeds []string) error {
	g, ctx := errgroup.WithContext(ctx)
	items := make(chan catalog.Item, 1024)

	feeders, feedCtx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		feeders.Go(imp.streamFeed(feedCtx, feed, items))
	}
	g.Go(func() error {
		defer close(items)
		return feeders.Wait()
	})
	g.Go(func() error {
		return imp.write(ctx, items)
	})
	return g.Wait()
}

// seen records name in the bloom filter and reports whether it was probably
// recorded before.
func (imp *importer) seen(name string) bool {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.filter.TestAndAddString(name)
}

// streamFeed decodes one gzipped feed line by line, sending fresh items to
// out. Duplicate and malformed lines are counted and dropped.
func (imp *importer) streamFeed(ctx context.Context, path string, out chan<- catalog.Item) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var lines uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			lines++
			if lines%progressEvery == 0 {
				slog.Info("feed progress", slog.String("feed", path), slog.Uint64("lines", lines))
			}

			item, err := decodeFeedLine(scanner.Bytes())
			if err != nil {
				imp.invalid.Add(1)
				continue
			}
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			if err := item.Validate(); err != nil {
				imp.invalid.Add(1)
				continue
			}
			if imp.seen(item.Name) {
				imp.duplicates.Add(1)
				continue
			}

			select {
			case out <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete", slog.String("feed", path), slog.Uint64("lines", lines))
		return nil
	}
}

const upsertItemSQL = `
INSERT INTO items (id, name, description, price, currency)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency`

// write upserts items from the channel until it closes.
func (imp *importer) write(ctx context.Context, items <-chan catalog.Item) error {
	for item := range items {
		if _, err := imp.db.Exec(ctx, upsertItemSQL,
			item.ID, item.Name, item.Description, item.Price, string(item.Currency),
		); err != nil {
			return errors.Wrapf(err, "upsert item %s", item.ID)
		}
		imp.imported.Add(1)
	}
	return nil
}

// decodeFeedLine parses one feed line. Price may be a JSON number or a
// quoted decimal string; suppliers disagree.
func decodeFeedLine(line []byte) (catalog.Item, error) {
	var item catalog.Item

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			item.ID = v
			return nil
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			item.Name = v
			return nil
		case "description":
			v, err := d.Str()
			if err != nil {
				return err
			}
			item.Description = v
			return nil
		case "price":
			var raw string
			switch d.Next() {
			case jx.String:
				v, err := d.Str()
				if err != nil {
					return err
				}
				raw = v
			default:
				num, err := d.Num()
				if err != nil {
					return err
				}
				raw = num.String()
			}
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			item.Price = price
			return nil
		case "currency":
			v, err := d.Str()
			if err != nil {
				return err
			}
			cur, err := catalog.ParseCurrency(v)
			if err != nil {
				return err
			}
			item.Currency = cur
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return catalog.Item{}, errors.Wrap(err, "decode feed line")
	}

	return item, nil
}
