package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// renderTimeLayout keeps human output stable and second-granular.
const renderTimeLayout = "2006-01-02 15:04:05 MST"

func renderTime(t time.Time) string {
	return t.UTC().Format(renderTimeLayout)
}

func renderOptTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return renderTime(*t)
}

// renderExpectation renders one expectation as text.
func renderExpectation(exp track.Expectation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expectation %s (v%d)\n", exp.ID, exp.Version)
	fmt.Fprintf(&b, "  Entity:      %s %s\n", exp.EntityType, exp.EntityID)
	fmt.Fprintf(&b, "  Kind:        %s\n", exp.Kind)
	fmt.Fprintf(&b, "  Belief:      %s\n", exp.Belief)
	fmt.Fprintf(&b, "  Expected at: %s\n", renderOptTime(exp.ExpectedAt))
	if exp.SupersededBy != nil {
		fmt.Fprintf(&b, "  Superseded:  by %s at %s\n", *exp.SupersededBy, renderOptTime(exp.SupersededAt))
	} else {
		fmt.Fprintf(&b, "  Superseded:  no (active)\n")
	}
	fmt.Fprintf(&b, "  Source:      %s (by %s at %s)\n", exp.Source, exp.CreatedBy, renderTime(exp.CreatedAt))
	return b.String()
}

// renderExpectationList renders a version history as text.
func renderExpectationList(exps []track.Expectation) string {
	if len(exps) == 0 {
		return "No expectations recorded.\n"
	}
	var b strings.Builder
	for _, exp := range exps {
		b.WriteString(renderExpectation(exp))
	}
	return b.String()
}

// renderException renders one exception as text.
func renderException(exc track.Exception) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exception %s [%s]\n", exc.ID, exc.Status)
	fmt.Fprintf(&b, "  Kind:        %s\n", exc.Kind)
	fmt.Fprintf(&b, "  Expectation: %s\n", exc.ExpectationID)
	fmt.Fprintf(&b, "  Deviation:   %.1f %s\n", exc.DeviationAmount, exc.DeviationUnit)
	fmt.Fprintf(&b, "  Occurred:    %s\n", renderOptTime(exc.OccurredAt))
	fmt.Fprintf(&b, "  Detected:    %s\n", renderTime(exc.DetectedAt))
	if label, ok := exc.Metadata["entity_label"].(string); ok && label != "" {
		fmt.Fprintf(&b, "  Entity:      %s\n", label)
	}
	if exc.AcknowledgedAt != nil {
		fmt.Fprintf(&b, "  Acknowledged: %s by %s\n", renderTime(*exc.AcknowledgedAt), exc.AcknowledgedBy)
	}
	if exc.ResolvedAt != nil {
		fmt.Fprintf(&b, "  Closed:      %s by %s\n", renderTime(*exc.ResolvedAt), exc.ResolvedBy)
	}
	if exc.RootCause != "" {
		fmt.Fprintf(&b, "  Root cause:  %s\n", exc.RootCause)
	}
	return b.String()
}

// renderExceptionList renders a filtered exception listing as text.
func renderExceptionList(excs []track.Exception) string {
	if len(excs) == 0 {
		return "No exceptions found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d exception(s)\n", len(excs))
	for _, exc := range excs {
		b.WriteString(renderException(exc))
	}
	return b.String()
}

// renderStats renders a tenant's exception stats as text.
func renderStats(tenant string, stats track.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exception stats for tenant %s\n", tenant)
	fmt.Fprintf(&b, "  Open:         %d\n", stats.OpenCount)
	fmt.Fprintf(&b, "  Acknowledged: %d\n", stats.AcknowledgedCount)
	fmt.Fprintf(&b, "  Resolved:     %d\n", stats.ResolvedCount)
	fmt.Fprintf(&b, "  Dismissed:    %d\n", stats.DismissedCount)
	fmt.Fprintf(&b, "  Total:        %d\n", stats.TotalCount)
	fmt.Fprintf(&b, "  Avg resolution time: %.2f h\n", stats.AvgResolutionTimeHours)
	return b.String()
}
