package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newMigrateCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the embedded schema migrations",
	}
	cmd.AddCommand(newMigrateUpCmd(o), newMigrateDownCmd(o), newMigrateVersionCmd(o))
	return cmd
}

func newMigrateUpCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, o, func(h *host) error {
				m, err := h.migrator()
				if err != nil {
					return err
				}
				return m.Up()
			})
		},
	}
}

func newMigrateDownCmd(o *options) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must be positive (got: %d)", steps)
			}
			return runMigration(cmd, o, func(h *host) error {
				m, err := h.migrator()
				if err != nil {
					return err
				}
				if steps == 0 {
					return m.Down()
				}
				return m.Steps(-steps)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to revert (default: all)")
	return cmd
}

func newMigrateVersionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, o, func(*host) error { return nil })
		},
	}
}

// runMigration runs fn against the open factory and prints the resulting
// schema version before the factory is torn down.
func runMigration(cmd *cobra.Command, o *options, fn func(h *host) error) error {
	out := cmd.OutOrStdout()
	h, err := newHost(o, io.Discard)
	if err != nil {
		return err
	}
	return h.app.RunTask(cmd.Context(), func(context.Context) error {
		if err := fn(h); err != nil {
			return err
		}
		m, err := h.migrator()
		if err != nil {
			return err
		}
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "schema version: %d", v)
		if dirty {
			fmt.Fprint(out, " (dirty)")
		}
		fmt.Fprintln(out)
		return nil
	})
}
