package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// ExpectOptions holds flags shared by the expect subcommands.
type ExpectOptions struct {
	*RootOptions
	EntityType string
	EntityID   string
	Kind       string
	Belief     string
	Value      string
	ExpectedAt string
	Source     string
	Actor      string
	Context    string
}

// NewExpectCommand creates the expect command group.
func NewExpectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expect",
		Short: "Manage the expectation ledger",
	}

	cmd.AddCommand(newExpectCreateCommand(rootOpts))
	cmd.AddCommand(newExpectSupersedeCommand(rootOpts))
	cmd.AddCommand(newExpectActiveCommand(rootOpts))
	cmd.AddCommand(newExpectHistoryCommand(rootOpts))

	return cmd
}

func newExpectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new version-1 expectation for an entity",
		Long: `Record a new version-1 expectation for an entity.

Example:
  eryxon-flow expect create --tenant acme \
    --entity-type operation --entity-id op-117-40 \
    --kind completion_time --belief "Deburr done by Friday noon" \
    --value '{"due":"2026-09-04T12:00:00Z"}' \
    --expected-at 2026-09-04T12:00:00Z \
    --source manual --actor planner@acme`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpectCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "entity type (job|operation|part|shipment)")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "opaque entity id")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(track.KindCompletionTime), "expectation kind")
	cmd.Flags().StringVar(&opts.Belief, "belief", "", "free-text belief statement")
	cmd.Flags().StringVar(&opts.Value, "value", "{}", "expected value as JSON")
	cmd.Flags().StringVar(&opts.ExpectedAt, "expected-at", "", "expected instant (RFC 3339, optional)")
	cmd.Flags().StringVar(&opts.Source, "source", string(track.SourceManual), "provenance source")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "creator identity")
	cmd.Flags().StringVar(&opts.Context, "context", "{}", "context payload as JSON")

	return cmd
}

func runExpectCreate(opts *ExpectOptions, cmd *cobra.Command) error {
	f := formatterFor(opts.RootOptions, cmd)

	value, err := parseJSONFlag("value", opts.Value)
	if err != nil {
		return err
	}
	context, err := parseJSONFlag("context", opts.Context)
	if err != nil {
		return err
	}
	expectedAt, err := parseTimeFlag("expected-at", opts.ExpectedAt)
	if err != nil {
		return err
	}

	s, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	exp, err := s.CreateExpectation(cmd.Context(), store.CreateExpectationParams{
		Tenant:        opts.Tenant,
		EntityType:    track.EntityType(opts.EntityType),
		EntityID:      opts.EntityID,
		Kind:          track.ExpectationKind(opts.Kind),
		Belief:        opts.Belief,
		ExpectedValue: value,
		ExpectedAt:    expectedAt,
		Source:        track.Source(opts.Source),
		CreatedBy:     opts.Actor,
		Context:       context,
	})
	if err != nil {
		return reportTrackError(f, err)
	}

	return f.Success(exp, renderExpectation(exp))
}

func newExpectSupersedeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "supersede <expectation-id>",
		Short:         "Atomically replace an active expectation with a new version",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpectSupersede(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Value, "value", "{}", "new expected value as JSON")
	cmd.Flags().StringVar(&opts.ExpectedAt, "expected-at", "", "new expected instant (RFC 3339, optional)")
	cmd.Flags().StringVar(&opts.Source, "source", string(track.SourceDueDateChange), "provenance source")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "creator identity")
	cmd.Flags().StringVar(&opts.Context, "context", "{}", "context payload as JSON")

	return cmd
}

func runExpectSupersede(opts *ExpectOptions, id string, cmd *cobra.Command) error {
	f := formatterFor(opts.RootOptions, cmd)

	value, err := parseJSONFlag("value", opts.Value)
	if err != nil {
		return err
	}
	context, err := parseJSONFlag("context", opts.Context)
	if err != nil {
		return err
	}
	expectedAt, err := parseTimeFlag("expected-at", opts.ExpectedAt)
	if err != nil {
		return err
	}

	s, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	exp, err := s.Supersede(cmd.Context(), opts.Tenant, id, store.SupersedeParams{
		NewExpectedValue: value,
		NewExpectedAt:    expectedAt,
		Source:           track.Source(opts.Source),
		CreatedBy:        opts.Actor,
		Context:          context,
	})
	if err != nil {
		return reportTrackError(f, err)
	}

	return f.Success(exp, renderExpectation(exp))
}

func newExpectActiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "active",
		Short:         "Show the active expectation for an entity and kind",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			exp, err := s.GetActive(cmd.Context(), opts.Tenant,
				track.EntityType(opts.EntityType), opts.EntityID, track.ExpectationKind(opts.Kind))
			if err != nil {
				return reportTrackError(f, err)
			}
			if exp == nil {
				return f.Success(nil, "No standing belief for this key.\n")
			}
			return f.Success(exp, renderExpectation(*exp))
		},
	}

	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "entity type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "opaque entity id")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(track.KindCompletionTime), "expectation kind")

	return cmd
}

func newExpectHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show every recorded version for an entity and kind",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)

			s, _, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer s.Close()

			history, err := s.History(cmd.Context(), opts.Tenant,
				track.EntityType(opts.EntityType), opts.EntityID, track.ExpectationKind(opts.Kind))
			if err != nil {
				return reportTrackError(f, err)
			}
			return f.Success(history, renderExpectationList(history))
		},
	}

	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "entity type")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "opaque entity id")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(track.KindCompletionTime), "expectation kind")

	return cmd
}

// formatterFor builds an OutputFormatter wired to the command's streams.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// parseJSONFlag parses a JSON object flag value.
func parseJSONFlag(name, raw string) (track.Payload, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var p track.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s JSON", name), err)
	}
	return p, nil
}

// parseTimeFlag parses an optional RFC 3339 flag value.
func parseTimeFlag(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s instant", name), err)
	}
	t = t.UTC()
	return &t, nil
}

// reportTrackError prints a typed domain error through the formatter and
// converts it to the matching exit code.
func reportTrackError(f *OutputFormatter, err error) error {
	var te *track.TrackError
	if errors.As(err, &te) {
		if outErr := f.Error(string(te.Code), te.Message, nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, te.Error())
	}
	return WrapExitError(ExitCommandError, "operation failed", err)
}
