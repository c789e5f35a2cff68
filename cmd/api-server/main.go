// Command api-server runs the repair shop back-office API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	appkg "github.com/xenking/repairdesk/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		lg = lg.With(
			zap.String("storage", cfg.Storage.Backend),
			zap.String("artifacts", cfg.ArtifactBackend()),
		)
		return appkg.Run(zctx.Base(ctx, lg), lg, m, cfg)
	})
}
