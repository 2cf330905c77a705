package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/hutbook/internal/auth"
	"github.com/example/hutbook/internal/config"
	"github.com/example/hutbook/internal/crypto"
	"github.com/example/hutbook/internal/db"
	"github.com/example/hutbook/internal/history"
	"github.com/example/hutbook/internal/migrate"
	"github.com/example/hutbook/internal/web"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the status UI: past runs, attempt history, stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			cfg, err := config.ServeFromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			enc, err := crypto.New(cfg.CredEncKey)
			if err != nil {
				return err
			}

			ws := &web.Server{
				Auth:    auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey),
				History: history.NewStore(d),
				Enc:     enc,
				BaseURL: cfg.BaseURL,
				Log:     slog.Default(),
			}
			return web.Start(ctx, slog.Default(), cfg.ListenAddr, ws.Routes())
		},
	}

	c.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	c.Flags().Lookup("migrate").NoOptDefVal = "true"
	return c
}
