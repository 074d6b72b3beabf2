package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/persistkit/util"
)

func newCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Initialize the factory, report its state and tear it down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			h, err := newHost(o, io.Discard)
			if err != nil {
				return err
			}
			err = h.app.RunTask(cmd.Context(), func(ctx context.Context) error {
				return h.report(ctx, out)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "state after teardown: %s\n", h.mgr.State())
			return nil
		},
	}
}

// report prints the factory's state and pool counters and pings the database.
func (h *host) report(ctx context.Context, out io.Writer) error {
	f, err := h.mgr.Factory()
	if err != nil {
		return err
	}
	s := f.Stats()
	fmt.Fprintf(out, "unit:        %s (%s)\n", s.Unit, s.Driver)
	fmt.Fprintf(out, "dsn:         %s\n", util.MaskDSN(f.Unit().DSN))
	fmt.Fprintf(out, "state:       %s\n", h.mgr.State())
	fmt.Fprintf(out, "handles:     %d\n", s.ActiveHandles)
	fmt.Fprintf(out, "connections: %d open, %d in use, %d idle\n", s.OpenConnections, s.InUse, s.Idle)

	if err := f.Ping(ctx); err != nil {
		return fmt.Errorf("ping unit %q: %w", s.Unit, err)
	}
	fmt.Fprintln(out, "ping:        ok")
	return nil
}
