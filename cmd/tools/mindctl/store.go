package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/logging"
	"github.com/zhouzirui/mindmate/backend/internal/model/user"
	"github.com/zhouzirui/mindmate/backend/internal/store"
	"github.com/zhouzirui/mindmate/backend/internal/store/postgres"
)

const storeTimeout = 15 * time.Second

func openStore(ctx context.Context) (*postgres.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return nil, err
	}
	return postgres.Open(ctx, cfg.Store, logger)
}

func newCheckStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-store",
		Short: "Connect to Postgres, apply migrations and ping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("store unavailable: %w", err)
			}
			defer st.Close()

			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store is reachable and migrated")
			return nil
		},
	}
}

func newVerifyUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-user <email>",
		Short: "Look up an account and its profile by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			st, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("store unavailable: %w", err)
			}
			defer st.Close()

			return verifyUser(ctx, st, args[0], cmd.OutOrStdout())
		},
	}
}

type userLookup interface {
	GetAccountByEmail(ctx context.Context, email string) (user.Account, error)
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
}

type userReport struct {
	UserID    string        `json:"user_id"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"created_at"`
	Profile   *user.Profile `json:"profile"`
}

func verifyUser(ctx context.Context, st userLookup, email string, out io.Writer) error {
	account, err := st.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no account for %s", logging.RedactEmail(email))
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	report := userReport{UserID: account.ID, Email: account.Email, CreatedAt: account.CreatedAt}
	profile, err := st.GetProfile(ctx, account.ID)
	switch {
	case err == nil:
		report.Profile = &profile
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(out, "warning: account has no profile")
	default:
		return fmt.Errorf("lookup profile: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
