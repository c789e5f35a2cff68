package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/auth"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/storage/file"
	"github.com/xenking/repairdesk/internal/storage/postgres"
)

type keySaver interface {
	Save(ctx context.Context, info auth.APIKeyInfo) error
}

type stores struct {
	clients client.Store
	coupons coupon.Repository
	keys    keySaver
	close   func()
}

type seedClient struct {
	client.Client
	coupons []string
}

var demoClients = []seedClient{
	{
		Client: client.Client{
			Name:     "Maria Souza",
			Email:    "maria.souza@example.com",
			Phone:    "11987654321",
			Document: "52998224725",
			Address:  "Rua das Flores, 120 - São Paulo/SP",
		},
		coupons: []string{"10", "15"},
	},
	{
		Client: client.Client{
			Name:     "João Pereira",
			Email:    "joao.pereira@example.com",
			Phone:    "2134567890",
			Document: "11222333000181",
			Address:  "Av. Atlântica, 455 - Rio de Janeiro/RJ",
		},
		coupons: []string{"20"},
	},
	{
		Client: client.Client{
			Name:     "Ana Lima",
			Email:    "ana.lima@example.com",
			Phone:    "31991234567",
			Document: "39053344705",
			Address:  "Rua da Bahia, 1000 - Belo Horizonte/MG",
		},
	},
}

func main() {
	var (
		backend      string
		databaseURL  string
		dataDir      string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&backend, "backend", "postgres", "storage backend: postgres or file")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataDir, "data-dir", "./data", "directory of the file backend")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or REPAIRDESK_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or REPAIRDESK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if backend == "postgres" && databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("REPAIRDESK_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or REPAIRDESK_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("REPAIRDESK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s, err := openStores(ctx, backend, databaseURL, dataDir)
	if err != nil {
		slog.Error("open storage failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer s.close()

	if err := run(ctx, s, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func openStores(ctx context.Context, backend, databaseURL, dataDir string) (*stores, error) {
	switch backend {
	case "postgres":
		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "connect to database")
		}

		slog.Info("running migrations")

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &stores{
			clients: postgres.NewClientRepository(pool),
			coupons: postgres.NewCouponRepository(pool),
			keys:    postgres.NewAPIKeyRepository(pool),
			close:   pool.Close,
		}, nil
	case "file":
		slog.Info("opening data dir", slog.String("path", dataDir))

		store, err := file.Open(dataDir)
		if err != nil {
			return nil, errors.Wrap(err, "open data dir")
		}
		return &stores{
			clients: file.NewClientRepository(store),
			coupons: file.NewCouponRepository(store),
			keys:    file.NewAPIKeyRepository(store),
			close:   func() {},
		}, nil
	default:
		return nil, errors.Errorf("unknown backend %q", backend)
	}
}

func run(ctx context.Context, s *stores, apiKey, pepper string) error {
	if err := seedClients(ctx, s); err != nil {
		return errors.Wrap(err, "seed clients")
	}

	if err := seedAPIKey(ctx, s.keys, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedClients(ctx context.Context, s *stores) error {
	slog.Info("seeding demo clients", slog.Int("count", len(demoClients)))

	ledger := coupon.NewLedger(s.coupons, s.clients)
	for _, sc := range demoClients {
		c := sc.Client
		if err := s.clients.Create(ctx, &c); err != nil {
			return errors.Wrapf(err, "create client %s", c.Name)
		}

		slog.Info("created client", slog.Int64("id", c.ID), slog.String("name", c.Name))

		for _, p := range sc.coupons {
			cp, err := ledger.Issue(ctx, c.ID, decimal.RequireFromString(p))
			if err != nil {
				return errors.Wrapf(err, "issue coupon for client %d", c.ID)
			}

			slog.Info("issued coupon",
				slog.Int64("id", cp.ID),
				slog.Int64("client_id", c.ID),
				slog.String("discount_percent", cp.DiscountPercent.String()),
			)
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, keys keySaver, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	if err := keys.Save(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default back-office key",
		Scopes:  []string{"orders", "coupons", "receipts"},
	}); err != nil {
		return errors.Wrap(err, "save default API key")
	}

	slog.Info("saved API key", slog.String("id", "default"), slog.String("name", "Default back-office key"))

	return nil
}
