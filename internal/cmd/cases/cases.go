// Package cases parses cases service configuration and launches the service.
package cases

import (
	"context"
	"flag"
	"log"

	"github.com/casebooklabs/casebook/internal/platform/bus"
	entrypoint "github.com/casebooklabs/casebook/internal/platform/cmd"
	"github.com/casebooklabs/casebook/internal/services/cases/app"
	"github.com/casebooklabs/casebook/internal/services/cases/storage/sqlite"
)

// Config holds cases command configuration.
type Config struct {
	NATSURL string `env:"CASEBOOK_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	DBPath  string `env:"CASEBOOK_CASES_DB" envDefault:"data/cases.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "The NATS server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The cases SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the cases service and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCases, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		svc, err := app.New(store)
		if err != nil {
			return err
		}

		conn, err := bus.DialNATS(cfg.NATSURL, entrypoint.ServiceCases)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := svc.Register(conn); err != nil {
			return err
		}
		log.Printf("cases service ready")
		<-ctx.Done()
		return nil
	})
}
