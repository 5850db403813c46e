// Package gateway parses gateway configuration and launches the HTTP edge.
package gateway

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/casebooklabs/casebook/internal/gateway"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	entrypoint "github.com/casebooklabs/casebook/internal/platform/cmd"
	"github.com/casebooklabs/casebook/internal/platform/timeouts"
)

// Config holds gateway command configuration.
type Config struct {
	Port        int    `env:"CASEBOOK_GATEWAY_PORT" envDefault:"8080"`
	NATSURL     string `env:"CASEBOOK_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	TokenSecret string `env:"CASEBOOK_TOKEN_SECRET"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The gateway HTTP port")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "The NATS server URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Serve runs an HTTP server for the given handler until the context is
// cancelled, then drains in-flight requests.
func Serve(ctx context.Context, port int, handler http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()
	log.Printf("gateway listening on %s", server.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Run starts the gateway and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGateway, func(ctx context.Context) error {
		if cfg.TokenSecret == "" {
			return fmt.Errorf("CASEBOOK_TOKEN_SECRET is required")
		}

		conn, err := bus.DialNATS(cfg.NATSURL, entrypoint.ServiceGateway)
		if err != nil {
			return err
		}
		defer conn.Close()

		gw, err := gateway.New(conn, []byte(cfg.TokenSecret))
		if err != nil {
			return err
		}
		return Serve(ctx, cfg.Port, gw.Handler())
	})
}
