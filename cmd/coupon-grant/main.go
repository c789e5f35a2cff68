// Command coupon-grant issues loyalty coupons to clients that appear in
// several periodic visit exports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/storage/file"
	"github.com/xenking/repairdesk/internal/storage/postgres"
)

// Issuer grants a coupon to a client.
type Issuer interface {
	Issue(ctx context.Context, clientID int64, percent decimal.Decimal) (*coupon.Coupon, error)
}

type options struct {
	pattern     string
	minFiles    int
	percent     string
	capacity    uint
	workers     int
	dryRun      bool
	backend     string
	databaseURL string
	dataDir     string
}

func main() {
	var o options

	flag.StringVar(&o.pattern, "files", "exports/visits-*.gz", "glob of gzip visit exports, one client id per line")
	flag.IntVar(&o.minFiles, "min-files", 2, "number of exports a client must appear in")
	flag.StringVar(&o.percent, "percent", "10", "discount percent of each granted coupon")
	flag.UintVar(&o.capacity, "capacity", 1_000_000, "expected ids per export, sizes the bloom filters")
	flag.IntVar(&o.workers, "workers", 8, "concurrent coupon inserts")
	flag.BoolVar(&o.dryRun, "dry-run", false, "report matching clients without issuing coupons")
	flag.StringVar(&o.backend, "backend", "postgres", "storage backend: postgres or file")
	flag.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&o.dataDir, "data-dir", "./data", "directory of the file backend")
	flag.Parse()

	if o.databaseURL == "" {
		o.databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, o); err != nil {
		slog.Error("coupon grant failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon grant completed successfully")
}

func run(ctx context.Context, o options) error {
	percent, err := decimal.NewFromString(o.percent)
	if err != nil {
		return errors.Wrap(err, "parse percent")
	}
	if !coupon.ValidPercent(percent) {
		return coupon.ErrInvalidDiscount
	}

	files, err := filepath.Glob(o.pattern)
	if err != nil {
		return errors.Wrap(err, "match export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", o.pattern)
	}
	slices.Sort(files)

	ids, err := findReturningClients(ctx, files, o.capacity, o.minFiles)
	if err != nil {
		return err
	}

	slog.Info("returning clients found", slog.Int("count", len(ids)))

	if len(ids) == 0 || o.dryRun {
		return nil
	}

	issuer, closeFn, err := openLedger(ctx, o)
	if err != nil {
		return err
	}
	defer closeFn()

	return grant(ctx, issuer, ids, percent, o.workers)
}

func openLedger(ctx context.Context, o options) (*coupon.Ledger, func(), error) {
	switch o.backend {
	case "postgres":
		if o.databaseURL == "" {
			return nil, nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
		}

		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, o.databaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect to database")
		}
		ledger := coupon.NewLedger(postgres.NewCouponRepository(pool), postgres.NewClientRepository(pool))
		return ledger, pool.Close, nil
	case "file":
		store, err := file.Open(o.dataDir)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open data dir")
		}
		ledger := coupon.NewLedger(file.NewCouponRepository(store), file.NewClientRepository(store))
		return ledger, func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown backend %q", o.backend)
	}
}

// grant issues one coupon per id. Unknown clients are logged and skipped.
func grant(ctx context.Context, issuer Issuer, ids []int64, percent decimal.Decimal, workers int) error {
	slog.Info("issuing coupons", slog.Int("count", len(ids)), slog.String("percent", percent.String()))

	var issued, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, id := range ids {
		g.Go(func() error {
			_, err := issuer.Issue(ctx, id, percent)
			switch {
			case errors.Is(err, client.ErrNotFound):
				slog.Warn("skipping unknown client", slog.Int64("client_id", id))
				skipped.Add(1)
				return nil
			case err != nil:
				return errors.Wrapf(err, "issue coupon for client %d", id)
			}

			if n := issued.Add(1); n%1000 == 0 {
				slog.Info("grant progress", slog.Int64("issued", n), slog.Int("total", len(ids)))
			}
			return nil
		})
	}

	err := g.Wait()
	slog.Info("grant finished", slog.Int64("issued", issued.Load()), slog.Int64("skipped", skipped.Load()))
	return err
}
