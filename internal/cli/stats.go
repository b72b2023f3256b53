package cli

import (
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show a tenant's exception counts and resolution latency",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)

			s, _, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.ExceptionStats(cmd.Context(), rootOpts.Tenant)
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(stats, renderStats(rootOpts.Tenant, stats))
		},
	}

	return cmd
}
