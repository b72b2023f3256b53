package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/detect"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var loop bool

	cmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Raise non-occurrence exceptions for overdue expectations",
		Long:          "Scan the tenant's active expectations whose expected instant has passed without a terminal status and raise non-occurrence exceptions for them. With --loop, keep sweeping on the configured interval until interrupted; looping must be enabled in the config file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)

			s, cfg, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			sweeper := detect.NewSweeper(s)

			if loop {
				if !cfg.Sweep.Enabled {
					return NewExitError(ExitCommandError,
						"sweep loop: sweep.enabled is false in config")
				}
				return runSweepLoop(cmd.Context(), f, sweeper, rootOpts.Tenant, cfg.Sweep.Interval)
			}

			raised, err := sweeper.RunOnce(cmd.Context(), rootOpts.Tenant)
			if err != nil {
				return reportTrackError(f, err)
			}

			return f.Success(
				map[string]any{"raised": raised},
				fmt.Sprintf("Sweep complete: %d exception(s) raised.\n", raised),
			)
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "sweep on the configured interval until interrupted")

	return cmd
}

// runSweepLoop sweeps immediately and then on every interval tick until the
// context is canceled.
func runSweepLoop(ctx context.Context, f *OutputFormatter, sweeper *detect.Sweeper, tenant string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		raised, err := sweeper.RunOnce(ctx, tenant)
		if err != nil {
			return reportTrackError(f, err)
		}
		if err := f.Success(
			map[string]any{"raised": raised},
			fmt.Sprintf("Sweep complete: %d exception(s) raised.\n", raised),
		); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
