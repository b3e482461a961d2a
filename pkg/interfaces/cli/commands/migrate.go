package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vsinha/stockroom/pkg/infrastructure/logging"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/sqlstore"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Apply and inspect the embedded schema migrations.

Available subcommands:
  up       - Apply all pending migrations
  status   - Show migration status`,
	}
	cmd.AddCommand(newMigrateUpCommand(opts))
	cmd.AddCommand(newMigrateStatusCommand(opts))
	return cmd
}

func newMigrateUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			applied, err := sqlstore.NewMigrator(a.store, logging.Component(a.logger, "migrate")).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if applied == 0 {
				color.New(color.FgCyan).Fprintln(out, "Database is up to date")
				return nil
			}
			color.New(color.FgGreen, color.Bold).Fprintf(out, "Applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func newMigrateStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := sqlstore.NewMigrator(a.store, a.logger).Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			applied := color.New(color.FgGreen)
			pending := color.New(color.FgYellow)
			pendingCount := 0
			for _, s := range statuses {
				if s.AppliedAt != nil {
					applied.Fprintf(out, "  [applied]  %s  %s\n", s.Version, s.AppliedAt.Format("2006-01-02 15:04:05"))
					continue
				}
				pendingCount++
				pending.Fprintf(out, "  [pending]  %s\n", s.Version)
			}
			fmt.Fprintf(out, "\n%d migration(s), %d pending\n", len(statuses), pendingCount)
			return nil
		},
	}
}
