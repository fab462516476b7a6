// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/spf13/cobra"

	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// NewSessionsCmd creates the sessions subcommand group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}
	cmd.AddCommand(NewSessionsPruneCmd())
	return cmd
}

// NewSessionsPruneCmd creates the sessions prune subcommand.
func NewSessionsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions and confirmation tokens",
		Long: `Delete expired session and email confirmation rows. Expired rows
are harmless but accumulate; run this periodically, e.g. from cron.`,
		RunE: runSessionsPrune,
	}
}

func runSessionsPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions, err := authpg.NewSessionRepository(pool).DeleteExpired(ctx)
	if err != nil {
		return err
	}

	confirmations, err := authpg.NewEmailConfirmationRepository(pool).DeleteExpired(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Pruned %d expired sessions and %d expired confirmations\n", sessions, confirmations)
	return nil
}
