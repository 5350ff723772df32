// Command trackfast is the operator CLI: schema migration, admin seeding and
// promotion, and password hashing for ADMIN_PASSWORD_HASH.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/TrackFast/internal/auth"
	"github.com/dharsanguruparan/TrackFast/internal/config"
	"github.com/dharsanguruparan/TrackFast/internal/database"
	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/repository"
	"github.com/dharsanguruparan/TrackFast/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trackfast: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trackfast",
		Short: "TrackFast operator CLI",
		Long: `trackfast manages a TrackFast deployment: it applies the database schema,
seeds and promotes admin accounts, and hashes passwords for the environment.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newSeedAdminCmd(),
		newPromoteCmd(),
		newHashPasswordCmd(),
	)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(pool *pgxpool.Pool) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	var email, password, role string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account unless the email is already registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(pool *pgxpool.Pool) error {
				admins := service.NewAdminService(repository.NewAdminRepository(pool))
				admin, created, err := admins.Seed(cmd.Context(), email, password, model.Role(role))
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", admin.Email, admin.Role, admin.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists (%s), left unchanged\n", admin.Email, admin.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Plain password or bcrypt hash")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "Role: admin or superadmin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant superadmin to an existing admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(pool *pgxpool.Pool) error {
				admins := service.NewAdminService(repository.NewAdminRepository(pool))
				admin, err := admins.Promote(cmd.Context(), email)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", admin.Email, admin.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// withDatabase connects, applies the schema and runs fn.
func withDatabase(ctx context.Context, fn func(pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.UseDatabase() {
		return errors.New("DATABASE_URL is not set")
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return fn(pool)
}
