package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/detect"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/events"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// ObserveOptions holds flags for the observe command.
type ObserveOptions struct {
	*RootOptions
	EntityType    string
	EntityID      string
	OldStatus     string
	NewStatus     string
	OccurredAt    string
	Label         string
	TransitionRef string
}

// NewObserveCommand creates the observe command. It plays the role of the
// owning entity's mutation path: it publishes a status change on the bus,
// which the detector subscribes to.
func NewObserveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ObserveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Feed an entity status change through detection",
		Long: `Feed an entity status change through detection.

Example:
  eryxon-flow observe --tenant acme \
    --entity-type operation --entity-id op-117-40 \
    --old-status in_progress --new-status completed \
    --occurred-at 2026-09-04T12:40:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "entity type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "opaque entity id")
	cmd.Flags().StringVar(&opts.OldStatus, "old-status", "", "status before the transition")
	cmd.Flags().StringVar(&opts.NewStatus, "new-status", "", "status after the transition")
	cmd.Flags().StringVar(&opts.OccurredAt, "occurred-at", "", "transition instant (RFC 3339, default now)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "human-readable entity label")
	cmd.Flags().StringVar(&opts.TransitionRef, "transition-ref", "", "collaborator audit reference")

	return cmd
}

func runObserve(opts *ObserveOptions, cmd *cobra.Command) error {
	f := formatterFor(opts.RootOptions, cmd)

	occurredAt, err := parseTimeFlag("occurred-at", opts.OccurredAt)
	if err != nil {
		return err
	}
	if occurredAt == nil {
		now := time.Now().UTC()
		occurredAt = &now
	}

	s, cfg, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	detectorOpts := []detect.Option{detect.WithTolerance(cfg.Tolerance())}
	if terminal := cfg.TerminalStatuses(); terminal != nil {
		detectorOpts = append(detectorOpts, detect.WithTerminalStatuses(terminal))
	}
	detector := detect.New(s, detectorOpts...)

	ev := events.StatusChange{
		Tenant:        opts.Tenant,
		EntityType:    track.EntityType(opts.EntityType),
		EntityID:      opts.EntityID,
		OldStatus:     opts.OldStatus,
		NewStatus:     opts.NewStatus,
		OccurredAt:    *occurredAt,
		Label:         opts.Label,
		TransitionRef: opts.TransitionRef,
	}

	raised, err := detector.Observe(cmd.Context(), ev)
	if err != nil {
		return reportTrackError(f, err)
	}

	if raised == nil {
		return f.Success(nil, "Status recorded; no exception raised.\n")
	}
	return f.Success(raised, renderException(*raised))
}
