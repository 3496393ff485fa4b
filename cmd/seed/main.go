package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"medimart/internal/db"
	"medimart/internal/domain/accounts"
	"medimart/internal/env"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dbAddr string
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Database maintenance for the MediMart API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dbAddr, "db", env.GetString("DB_ADDR", ""), "Postgres connection string (defaults to DB_ADDR)")
	cmd.AddCommand(newMigrateCommand(&dbAddr))
	cmd.AddCommand(newAdminCommand(&dbAddr))
	return cmd
}

func newMigrateCommand(dbAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if *dbAddr == "" {
				return errors.New("database address is required")
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return db.Migrate(ctx, *dbAddr, logger.Sugar())
		},
	}
}

type adminOptions struct {
	name     string
	email    string
	phone    string
	address  string
	password string
}

func newAdminCommand(dbAddr *string) *cobra.Command {
	var opts adminOptions
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create or promote an approved administrator",
		Long:  "Creates an APPROVED ADMIN account. Running it again for the same email promotes and approves the existing account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdmin(cmd.Context(), *dbAddr, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&opts.email, "email", env.GetString("SEED_ADMIN_EMAIL", ""), "Login email (defaults to SEED_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&opts.phone, "phone", env.GetString("SEED_ADMIN_PHONE", "0000000000"), "Phone number")
	cmd.Flags().StringVar(&opts.address, "address", "Head office", "Postal address")
	cmd.Flags().StringVar(&opts.password, "password", env.GetString("SEED_ADMIN_PASSWORD", ""), "Password (defaults to SEED_ADMIN_PASSWORD)")
	return cmd
}

func runAdmin(ctx context.Context, dbAddr string, opts adminOptions) error {
	switch {
	case dbAddr == "":
		return errors.New("database address is required")
	case opts.email == "":
		return errors.New("--email is required")
	case len(opts.password) < 8:
		return errors.New("--password must be at least 8 characters")
	}

	pool, err := db.New(dbAddr, 2, "1m")
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	account := &accounts.Account{
		Name:    opts.name,
		Email:   accounts.NormalizeEmail(opts.email),
		Phone:   opts.phone,
		Address: opts.address,
	}
	if err := account.Password.Set(opts.password); err != nil {
		return err
	}

	if err := accounts.NewRepository(pool).EnsureAdmin(ctx, account); err != nil {
		return err
	}

	fmt.Printf("admin %s ready (id %d, status %s)\n", account.Email, account.ID, account.Status)
	return nil
}
