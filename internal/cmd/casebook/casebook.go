// Package casebook launches every service in one process over the
// in-process bus. This is the development and small-deployment topology;
// the per-service commands cover the multi-process one.
package casebook

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/casebooklabs/casebook/internal/gateway"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	entrypoint "github.com/casebooklabs/casebook/internal/platform/cmd"

	gatewaycmd "github.com/casebooklabs/casebook/internal/cmd/gateway"
	appointmentsapp "github.com/casebooklabs/casebook/internal/services/appointments/app"
	appointmentssqlite "github.com/casebooklabs/casebook/internal/services/appointments/storage/sqlite"
	casesapp "github.com/casebooklabs/casebook/internal/services/cases/app"
	casessqlite "github.com/casebooklabs/casebook/internal/services/cases/storage/sqlite"
	clientsapp "github.com/casebooklabs/casebook/internal/services/clients/app"
	clientssqlite "github.com/casebooklabs/casebook/internal/services/clients/storage/sqlite"
	filesapp "github.com/casebooklabs/casebook/internal/services/files/app"
	"github.com/casebooklabs/casebook/internal/services/files/blob"
	filessqlite "github.com/casebooklabs/casebook/internal/services/files/storage/sqlite"
	notificationsapp "github.com/casebooklabs/casebook/internal/services/notifications/app"
	"github.com/casebooklabs/casebook/internal/services/notifications/mailer"
	notificationssqlite "github.com/casebooklabs/casebook/internal/services/notifications/storage/sqlite"
	tasksapp "github.com/casebooklabs/casebook/internal/services/tasks/app"
	taskssqlite "github.com/casebooklabs/casebook/internal/services/tasks/storage/sqlite"
	usersapp "github.com/casebooklabs/casebook/internal/services/users/app"
	userssqlite "github.com/casebooklabs/casebook/internal/services/users/storage/sqlite"
	visitorsapp "github.com/casebooklabs/casebook/internal/services/visitors/app"
	visitorssqlite "github.com/casebooklabs/casebook/internal/services/visitors/storage/sqlite"
)

// Config holds combined-launcher configuration.
type Config struct {
	Port         int    `env:"CASEBOOK_GATEWAY_PORT" envDefault:"8080"`
	DataDir      string `env:"CASEBOOK_DATA_DIR" envDefault:"data"`
	TokenSecret  string `env:"CASEBOOK_TOKEN_SECRET"`
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
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The gateway HTTP port")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "The directory holding databases and blobs")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type registrar interface {
	Register(conn bus.Conn) error
}

// Run opens every store, registers every service on one in-process bus,
// and serves the gateway until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCombined, func(ctx context.Context) error {
		if cfg.TokenSecret == "" {
			return fmt.Errorf("CASEBOOK_TOKEN_SECRET is required")
		}

		conn := bus.NewInproc()
		defer conn.Close()

		usersStore, err := userssqlite.Open(filepath.Join(cfg.DataDir, "users.db"))
		if err != nil {
			return err
		}
		defer usersStore.Close()
		clientsStore, err := clientssqlite.Open(filepath.Join(cfg.DataDir, "clients.db"))
		if err != nil {
			return err
		}
		defer clientsStore.Close()
		casesStore, err := casessqlite.Open(filepath.Join(cfg.DataDir, "cases.db"))
		if err != nil {
			return err
		}
		defer casesStore.Close()
		filesStore, err := filessqlite.Open(filepath.Join(cfg.DataDir, "files.db"))
		if err != nil {
			return err
		}
		defer filesStore.Close()
		tasksStore, err := taskssqlite.Open(filepath.Join(cfg.DataDir, "tasks.db"))
		if err != nil {
			return err
		}
		defer tasksStore.Close()
		visitorsStore, err := visitorssqlite.Open(filepath.Join(cfg.DataDir, "visitors.db"))
		if err != nil {
			return err
		}
		defer visitorsStore.Close()
		appointmentsStore, err := appointmentssqlite.Open(filepath.Join(cfg.DataDir, "appointments.db"))
		if err != nil {
			return err
		}
		defer appointmentsStore.Close()
		notificationsStore, err := notificationssqlite.Open(filepath.Join(cfg.DataDir, "notifications.db"))
		if err != nil {
			return err
		}
		defer notificationsStore.Close()

		blobs, err := blob.NewDir(filepath.Join(cfg.DataDir, "blobs"))
		if err != nil {
			return err
		}

		var mail mailer.Mailer = mailer.Noop{}
		if cfg.SMTPHost != "" {
			mail, err = mailer.NewSMTP(mailer.SMTPConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				From:     cfg.SMTPFrom,
			})
			if err != nil {
				return err
			}
		}

		usersSvc, err := usersapp.New(usersStore)
		if err != nil {
			return err
		}
		clientsSvc, err := clientsapp.New(clientsStore)
		if err != nil {
			return err
		}
		casesSvc, err := casesapp.New(casesStore)
		if err != nil {
			return err
		}
		filesSvc, err := filesapp.New(filesStore, blobs)
		if err != nil {
			return err
		}
		tasksSvc, err := tasksapp.New(tasksStore)
		if err != nil {
			return err
		}
		visitorsSvc, err := visitorsapp.New(visitorsStore)
		if err != nil {
			return err
		}
		appointmentsSvc, err := appointmentsapp.New(appointmentsStore)
		if err != nil {
			return err
		}
		notificationsSvc, err := notificationsapp.New(notificationsStore, mail)
		if err != nil {
			return err
		}

		services := []registrar{
			usersSvc, clientsSvc, casesSvc, filesSvc,
			tasksSvc, visitorsSvc, appointmentsSvc, notificationsSvc,
		}
		for _, svc := range services {
			if err := svc.Register(conn); err != nil {
				return err
			}
		}

		gw, err := gateway.New(conn, []byte(cfg.TokenSecret))
		if err != nil {
			return err
		}
		log.Printf("casebook services registered")
		return gatewaycmd.Serve(ctx, cfg.Port, gw.Handler())
	})
}
