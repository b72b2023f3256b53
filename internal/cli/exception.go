package cli

import (
	"github.com/spf13/cobra"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/workflow"
)

// ExceptionOptions holds flags shared by the exception subcommands.
type ExceptionOptions struct {
	*RootOptions
	Status           string
	Kind             string
	EntityType       string
	EntityID         string
	From             string
	To               string
	Actor            string
	Reason           string
	RootCause        string
	CorrectiveAction string
	PreventiveAction string
	Resolution       string
}

// NewExceptionCommand creates the exception command group.
func NewExceptionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exception",
		Short: "Inspect and work exceptions",
	}

	cmd.AddCommand(newExceptionListCommand(rootOpts))
	cmd.AddCommand(newExceptionAcknowledgeCommand(rootOpts))
	cmd.AddCommand(newExceptionResolveCommand(rootOpts))
	cmd.AddCommand(newExceptionDismissCommand(rootOpts))

	return cmd
}

func newExceptionListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExceptionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List a tenant's exceptions, optionally filtered",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			from, err := parseTimeFlag("from", opts.From)
			if err != nil {
				return err
			}
			to, err := parseTimeFlag("to", opts.To)
			if err != nil {
				return err
			}

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			excs, err := s.ListExceptions(cmd.Context(), opts.Tenant, store.ExceptionFilter{
				Status:       track.ExceptionStatus(opts.Status),
				Kind:         track.ExceptionKind(opts.Kind),
				EntityType:   track.EntityType(opts.EntityType),
				EntityID:     opts.EntityID,
				DetectedFrom: from,
				DetectedTo:   to,
			})
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(excs, renderExceptionList(excs))
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by workflow status")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter by exception kind")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "filter by entity id")
	cmd.Flags().StringVar(&opts.From, "from", "", "detected at or after (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "detected before (RFC 3339)")

	return cmd
}

func newExceptionAcknowledgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExceptionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "acknowledge <exception-id>",
		Short:         "Acknowledge an open exception",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			exc, err := workflow.New(s).Acknowledge(cmd.Context(), opts.Tenant, args[0], opts.Actor)
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(exc, renderException(exc))
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acknowledging identity")

	return cmd
}

func newExceptionResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExceptionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "resolve <exception-id>",
		Short:         "Resolve an open or acknowledged exception",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			resolution, err := parseJSONFlag("resolution", opts.Resolution)
			if err != nil {
				return err
			}

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			exc, err := workflow.New(s).Resolve(cmd.Context(), opts.Tenant, args[0], opts.Actor, workflow.ResolveOptions{
				RootCause:        opts.RootCause,
				CorrectiveAction: opts.CorrectiveAction,
				PreventiveAction: opts.PreventiveAction,
				Resolution:       resolution,
			})
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(exc, renderException(exc))
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "resolving identity")
	cmd.Flags().StringVar(&opts.RootCause, "root-cause", "", "root cause narrative")
	cmd.Flags().StringVar(&opts.CorrectiveAction, "corrective-action", "", "corrective action narrative")
	cmd.Flags().StringVar(&opts.PreventiveAction, "preventive-action", "", "preventive action narrative")
	cmd.Flags().StringVar(&opts.Resolution, "resolution", "", "structured resolution payload as JSON")

	return cmd
}

func newExceptionDismissCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExceptionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "dismiss <exception-id>",
		Short:         "Dismiss an open or acknowledged exception",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			exc, err := workflow.New(s).Dismiss(cmd.Context(), opts.Tenant, args[0], opts.Actor, opts.Reason)
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(exc, renderException(exc))
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "dismissing identity")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "dismissal reason")

	return cmd
}
