package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"placedir/internal/claims"
	"placedir/internal/db"
	"placedir/internal/db/repository"
	"placedir/internal/domain"
	"placedir/internal/identity"
	"placedir/internal/service/lifecycle"
	"placedir/internal/service/reconcile"
)

func openDatabase(path string) (*sql.DB, func(), error) {
	writeDB, readDB, err := db.OpenSQLitePair(path, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	cleanup := func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	}
	if err := db.RunMigrations(writeDB); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return writeDB, cleanup, nil
}

func newCodec(secret, issuer string, ttl time.Duration) (*claims.Codec, error) {
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return nil, fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
	}
	return claims.NewCodec(secret, issuer, ttl)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newInitAdminCmd provisions the first admin account. The API cannot do this
// itself: every lifecycle endpoint requires an existing admin caller.
func newInitAdminCmd(dbPath *string) *cobra.Command {
	var (
		email    string
		password string
		secret   string
	)

	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Provision an admin account directly in the database",
		Example: `  placedir-admin init-admin --email root@example.com --password 'S3cret!' --secret "$JWT_SECRET"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			codec, err := newCodec(secret, "placedir", 24*time.Hour)
			if err != nil {
				return err
			}
			writeDB, cleanup, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			provider := identity.NewProvider(repository.NewProviderAccountRepo(writeDB), codec, quietLogger())
			uid, err := provider.CreateAccount(ctx, email, password, "Administrator")
			if err != nil {
				return err
			}
			if err := provider.SetClaims(ctx, uid, domain.ClaimBundle{Role: domain.RoleAdmin}); err != nil {
				return err
			}
			if err := repository.NewPrincipalRepo(writeDB).Upsert(ctx, &domain.Principal{
				UID:   uid,
				Role:  domain.RoleAdmin,
				Email: email,
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin account created: %s\n", uid)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin sign-in email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 token signing secret (defaults to JWT_SECRET)")
	return cmd
}

// newCreateOperatorCmd runs the business-operator provisioning sequence
// locally, for deployments that have not stood up an admin session yet.
func newCreateOperatorCmd(dbPath *string) *cobra.Command {
	var (
		name     string
		username string
		password string
		secret   string
	)

	cmd := &cobra.Command{
		Use:   "create-operator",
		Short: "Provision a business operator and its tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := newCodec(secret, "placedir", 24*time.Hour)
			if err != nil {
				return err
			}
			writeDB, cleanup, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			provider := identity.NewProvider(repository.NewProviderAccountRepo(writeDB), codec, quietLogger())
			svc := lifecycle.NewService(
				provider,
				repository.NewPrincipalRepo(writeDB),
				repository.NewTenantRepo(writeDB),
				repository.NewTxManager(writeDB),
				repository.NewAuditRepo(writeDB),
				quietLogger(),
			)

			// Lifecycle operations require an admin caller.
			ctx := domain.WithCaller(context.Background(), domain.Caller{UID: "cli", Role: domain.RoleAdmin})
			uid, err := svc.CreateBusinessOperator(ctx, domain.CreateBusinessOperatorRequest{
				Name:     name,
				Username: username,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "business operator created: %s\n", uid)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "business display name")
	cmd.Flags().StringVar(&username, "username", "", "operator login username")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 token signing secret (defaults to JWT_SECRET)")
	return cmd
}

func newMintTokenCmd(dbPath *string) *cobra.Command {
	var (
		uid    string
		secret string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint-token",
		Short: "Mint a session token for an existing account",
		Long:  "Mint a session token carrying the account's current claim bundle, without checking credentials. Development and break-glass use only.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uid == "" {
				return fmt.Errorf("--uid is required")
			}
			codec, err := newCodec(secret, issuer, ttl)
			if err != nil {
				return err
			}
			writeDB, cleanup, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			provider := identity.NewProvider(repository.NewProviderAccountRepo(writeDB), codec, quietLogger())
			token, err := provider.MintToken(context.Background(), uid)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "account uid to mint for")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 token signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "placedir", "token issuer claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newSweepCmd(dbPath *string) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one orphaned-account reconciliation pass",
		Long:  "Delete identity provider accounts older than the grace period that never got a principal document.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The sweep never mints tokens; any non-empty secret satisfies
			// the provider constructor.
			codec, err := claims.NewCodec("sweep-only", "placedir", time.Hour)
			if err != nil {
				return err
			}
			writeDB, cleanup, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			provider := identity.NewProvider(repository.NewProviderAccountRepo(writeDB), codec, quietLogger())
			sweeper := reconcile.NewSweeper(provider, repository.NewPrincipalRepo(writeDB), repository.NewAuditRepo(writeDB), quietLogger())
			if grace > 0 {
				sweeper = sweeper.WithGracePeriod(grace)
			}
			removed, err := sweeper.Sweep(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned account(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", reconcile.DefaultGracePeriod, "minimum account age before deletion")
	return cmd
}
