package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/artifact"
	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
	"github.com/xenking/repairdesk/internal/storage/file"
	"github.com/xenking/repairdesk/internal/storage/gcs"
	"github.com/xenking/repairdesk/internal/storage/postgres"
	"github.com/xenking/repairdesk/pkg/health"
)

// Backend bundles the repositories and document store selected by Config.
type Backend struct {
	Clients   client.Store
	Orders    order.Repository
	Coupons   coupon.Repository
	Receipts  receipt.Repository
	APIKeys   auth.Repository
	Artifacts artifact.Store

	checks  []health.Check
	closers []func()
}

// Close releases every connection opened by OpenBackend.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackend connects the storage and document backends named in cfg.
func OpenBackend(ctx context.Context, lg *zap.Logger, cfg *Config) (_ *Backend, rerr error) {
	b := &Backend{}
	defer func() {
		if rerr != nil {
			b.Close()
		}
	}()

	switch cfg.Storage.Backend {
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		b.closers = append(b.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		b.Clients = postgres.NewClientRepository(pool)
		b.Orders = postgres.NewOrderRepository(pool)
		b.Coupons = postgres.NewCouponRepository(pool)
		b.Receipts = postgres.NewReceiptRepository(pool)
		b.APIKeys = postgres.NewAPIKeyRepository(pool)
		if cfg.ArtifactBackend() == BackendPostgres {
			b.Artifacts = postgres.NewArtifactStore(pool)
		}
		b.checks = append(b.checks, health.Check{
			Name:    "postgres",
			Kind:    health.Readiness,
			Timeout: 5 * time.Second,
			Func:    health.PingCheck(pool),
		})
	case BackendFile:
		store, err := file.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, errors.Wrap(err, "open data dir")
		}
		b.Clients = file.NewClientRepository(store)
		b.Orders = file.NewOrderRepository(store)
		b.Coupons = file.NewCouponRepository(store)
		b.Receipts = file.NewReceiptRepository(store)
		b.APIKeys = file.NewAPIKeyRepository(store)
		b.checks = append(b.checks, health.Check{
			Name: "data_dir",
			Kind: health.Readiness,
			Func: health.DirWritableCheck(cfg.Storage.DataDir),
		})
	}

	switch cfg.ArtifactBackend() {
	case BackendFile:
		store, err := file.NewArtifactStore(cfg.Artifacts.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open artifacts dir")
		}
		b.Artifacts = store
		b.checks = append(b.checks, health.Check{
			Name: "artifacts_dir",
			Kind: health.Readiness,
			Func: health.DirWritableCheck(cfg.Artifacts.Dir),
		})
	case BackendGCS:
		store, err := gcs.Open(ctx, gcs.Config{
			Bucket:   cfg.Artifacts.Bucket,
			Prefix:   cfg.Artifacts.Prefix,
			Endpoint: cfg.Artifacts.Endpoint,
		})
		if err != nil {
			return nil, errors.Wrap(err, "open artifacts bucket")
		}
		b.Artifacts = store
		b.closers = append(b.closers, func() {
			if err := store.Close(); err != nil {
				lg.Warn("Close storage client", zap.Error(err))
			}
		})
	}

	lg.Info("Backend ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("artifacts", cfg.ArtifactBackend()),
	)
	return b, nil
}
