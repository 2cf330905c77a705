package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/hutbook/internal/auth"
	"github.com/example/hutbook/internal/config"
	"github.com/example/hutbook/internal/crypto"
	"github.com/example/hutbook/internal/db"
	"github.com/example/hutbook/internal/migrate"
)

func newUserCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "user",
		Short: "Manage status-UI users",
	}
	c.AddCommand(newUserAddCmd())
	c.AddCommand(newUserSetCredentialsCmd())
	return c
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a status-UI user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			cfg, err := config.ServeFromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			store := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey)
			if err := store.CreateUser(ctx, username, password); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created user %q\n", username)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}

func newUserSetCredentialsCmd() *cobra.Command {
	var userID int64
	var provider, hutUser, hutPass string

	c := &cobra.Command{
		Use:   "set-credentials",
		Short: "Store encrypted hut-site credentials for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotenv()
			cfg, err := config.ServeFromEnv()
			if err != nil {
				return err
			}
			if provider != config.ProviderDefault && provider != config.ProviderSAC {
				return fmt.Errorf("provider must be %q or %q", config.ProviderDefault, config.ProviderSAC)
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			enc, err := crypto.New(cfg.CredEncKey)
			if err != nil {
				return err
			}
			store := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey)
			err = store.SaveHutCredentials(ctx, enc, userID, auth.HutCredentials{
				Provider: provider,
				Username: hutUser,
				Password: hutPass,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "stored %s credentials for user %d\n", provider, userID)
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "status-UI user id")
	c.Flags().StringVar(&provider, "provider", config.ProviderDefault, "login provider (default or sac)")
	c.Flags().StringVar(&hutUser, "hut-username", "", "hut-site username")
	c.Flags().StringVar(&hutPass, "hut-password", "", "hut-site password")
	_ = c.MarkFlagRequired("user-id")
	_ = c.MarkFlagRequired("hut-username")
	_ = c.MarkFlagRequired("hut-password")
	return c
}
