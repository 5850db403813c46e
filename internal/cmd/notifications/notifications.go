// Package notifications parses notifications service configuration and
// launches the service.
package notifications

import (
	"context"
	"flag"
	"log"

	"github.com/casebooklabs/casebook/internal/platform/bus"
	entrypoint "github.com/casebooklabs/casebook/internal/platform/cmd"
	"github.com/casebooklabs/casebook/internal/services/notifications/app"
	"github.com/casebooklabs/casebook/internal/services/notifications/mailer"
	"github.com/casebooklabs/casebook/internal/services/notifications/storage/sqlite"
)

// Config holds notifications command configuration. An empty SMTP host
// selects the noop mailer: deliveries are recorded but no mail leaves the
// process.
type Config struct {
	NATSURL      string `env:"CASEBOOK_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	DBPath       string `env:"CASEBOOK_NOTIFICATIONS_DB" envDefault:"data/notifications.db"`
	SMTPHost     string `env:"CASEBOOK_SMTP_HOST"`
	SMTPPort     int    `env:"CASEBOOK_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"CASEBOOK_SMTP_USERNAME"`
	SMTPPassword string `env:"CASEBOOK_SMTP_PASSWORD"`
	SMTPFrom     string `env:"CASEBOOK_SMTP_FROM"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "The NATS server URL")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The notifications SQLite database path")
	fs.StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "The SMTP relay host (empty for noop mailer)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newMailer(cfg Config) (mailer.Mailer, error) {
	if cfg.SMTPHost == "" {
		log.Printf("notifications: no SMTP host configured, using noop mailer")
		return mailer.Noop{}, nil
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// Run starts the notifications service and blocks until the context is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNotifications, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		mail, err := newMailer(cfg)
		if err != nil {
			return err
		}

		svc, err := app.New(store, mail)
		if err != nil {
			return err
		}

		conn, err := bus.DialNATS(cfg.NATSURL, entrypoint.ServiceNotifications)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := svc.Register(conn); err != nil {
			return err
		}
		log.Printf("notifications service ready")
		<-ctx.Done()
		return nil
	})
}
