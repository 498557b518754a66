package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"invizible.art/internal/auth"
	"invizible.art/internal/config"
	"invizible.art/internal/migrate"
	"invizible.art/internal/obs"
	"invizible.art/internal/store/pg"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dsn     string
	verbose bool
	timeout time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Schema and provisioning tool for the storefront database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.dsn != "" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.dsn = cfg.Database.DSN
			obs.InitLogger(cfg.Env, cfg.LogLevel)
			if opts.dsn == "" {
				return errors.New("missing DSN: provide via --dsn or DATABASE_URL")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (defaults to DATABASE_URL)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Log every migration statement")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "Overall deadline for the command")

	cmd.AddCommand(newUpCommand(opts))
	cmd.AddCommand(newDownCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newCreateAdminCommand(opts))
	return cmd
}

// withDB opens the database for the duration of fn.
func withDB(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, db *sql.DB) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	db, err := pg.Open(opts.dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := pg.Ping(ctx, db); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return fn(ctx, db)
}

func withManager(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, mgr *migrate.Manager) error) error {
	return withDB(cmd, opts, func(ctx context.Context, db *sql.DB) error {
		mgr, err := migrate.NewManager(db, migrate.WithVerbose(opts.verbose))
		if err != nil {
			return err
		}
		return fn(ctx, mgr)
	})
}

func newUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(ctx context.Context, mgr *migrate.Manager) error {
				if err := mgr.Up(ctx); err != nil {
					return err
				}
				v, err := mgr.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
				return nil
			})
		},
	}
}

func newDownCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(ctx context.Context, mgr *migrate.Manager) error {
				return mgr.Down(ctx)
			})
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List known migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, opts, func(ctx context.Context, mgr *migrate.Manager) error {
				statuses, err := mgr.Status(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
				for _, s := range statuses {
					applied := "pending"
					if s.Applied {
						applied = s.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, s.Name, applied)
				}
				return tw.Flush()
			})
		},
	}
}

func newCreateAdminCommand(opts *rootOptions) *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision a login for the admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			name = strings.TrimSpace(name)
			if name == "" || password == "" {
				return errors.New("--name and --password (or ADMIN_PASSWORD) are required")
			}
			return withDB(cmd, opts, func(ctx context.Context, db *sql.DB) error {
				hash, err := auth.HashPassword(password)
				if err != nil {
					return err
				}
				p := &auth.Principal{Name: name, PasswordHash: hash}
				if err := auth.NewPGStore(db).Principals().Create(ctx, p); err != nil {
					return fmt.Errorf("create principal: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created principal %d (%s)\n", p.ID, p.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Login name")
	cmd.Flags().StringVar(&password, "password", "", "Login password (defaults to ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
