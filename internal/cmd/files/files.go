// Package files parses files service configuration and launches the service.
package files

import (
	"context"
	"flag"
	"log"

	"github.com/casebooklabs/casebook/internal/platform/bus"
	entrypoint "github.com/casebooklabs/casebook/internal/platform/cmd"
	"github.com/casebooklabs/casebook/internal/services/files/app"
	"github.com/casebooklabs/casebook/internal/services/files/blob"
	"github.com/casebooklabs/casebook/internal/services/files/storage/sqlite"
)

// Config holds files command configuration.
type Config struct {
	NATSURL string `env:"CASEBOOK_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	DBPath  string `env:"CASEBOOK_FILES_DB" envDefault:"data/files.db"`
	BlobDir string `env:"CASEBOOK_FILES_BLOB_DIR" envDefault:"data/blobs"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "The NATS server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The files SQLite database path")
	fs.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "The blob storage directory")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the files service and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFiles, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		blobs, err := blob.NewDir(cfg.BlobDir)
		if err != nil {
			return err
		}

		svc, err := app.New(store, blobs)
		if err != nil {
			return err
		}

		conn, err := bus.DialNATS(cfg.NATSURL, entrypoint.ServiceFiles)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := svc.Register(conn); err != nil {
			return err
		}
		log.Printf("files service ready")
		<-ctx.Done()
		return nil
	})
}
