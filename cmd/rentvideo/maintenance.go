// cmd/rentvideo/maintenance.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rentvideo/internal/database"
	"rentvideo/internal/rental"
)

var asOfFlag string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("schema up to date", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default accounts and sample videos on an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return runSeed(cmd.Context(), a)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark ACTIVE rentals past their due date as OVERDUE",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		asOf := a.rentals.Today()
		if asOfFlag != "" {
			asOf, err = rental.ParseDate(asOfFlag)
			if err != nil {
				return fmt.Errorf("--as-of: %w", err)
			}
		}

		marked, err := a.rentals.MarkOverdue(cmd.Context(), asOf)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "marked %d rentals overdue as of %s\n", marked, asOf)
		return nil
	},
}

func init() {
	sweepCmd.Flags().StringVar(&asOfFlag, "as-of", "", "calendar day to sweep against (YYYY-MM-DD), defaults to today")
}
