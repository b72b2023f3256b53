package store

import (
	"context"
	"fmt"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// ExceptionStats aggregates a tenant's exception counts and resolution
// latency. Pure read, recomputed per call - no caching.
//
// AvgResolutionTimeHours is computed only over rows with a non-null
// resolved-at, as (resolvedAt - detectedAt); zero when nothing has resolved.
// The average is computed in Go because the instants are stored as text.
func (s *Store) ExceptionStats(ctx context.Context, tenant string) (track.Stats, error) {
	if err := track.ValidateTenant(tenant); err != nil {
		return track.Stats{}, err
	}

	var stats track.Stats

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT status, COUNT(*)
		FROM exceptions
		WHERE tenant_id = ?
		GROUP BY status
	`), tenant)
	if err != nil {
		return track.Stats{}, fmt.Errorf("query exception counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return track.Stats{}, fmt.Errorf("scan exception count: %w", err)
		}
		switch track.ExceptionStatus(status) {
		case track.StatusOpen:
			stats.OpenCount = count
		case track.StatusAcknowledged:
			stats.AcknowledgedCount = count
		case track.StatusResolved:
			stats.ResolvedCount = count
		case track.StatusDismissed:
			stats.DismissedCount = count
		}
		stats.TotalCount += count
	}
	if err := rows.Err(); err != nil {
		return track.Stats{}, fmt.Errorf("iterate exception counts: %w", err)
	}

	latRows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT detected_at, resolved_at
		FROM exceptions
		WHERE tenant_id = ? AND resolved_at IS NOT NULL
	`), tenant)
	if err != nil {
		return track.Stats{}, fmt.Errorf("query resolution latencies: %w", err)
	}
	defer latRows.Close()

	var totalHours float64
	var resolved int
	for latRows.Next() {
		var detectedAt, resolvedAt string
		if err := latRows.Scan(&detectedAt, &resolvedAt); err != nil {
			return track.Stats{}, fmt.Errorf("scan resolution latency: %w", err)
		}
		d, err := parseTime(detectedAt)
		if err != nil {
			return track.Stats{}, err
		}
		r, err := parseTime(resolvedAt)
		if err != nil {
			return track.Stats{}, err
		}
		totalHours += r.Sub(d).Hours()
		resolved++
	}
	if err := latRows.Err(); err != nil {
		return track.Stats{}, fmt.Errorf("iterate resolution latencies: %w", err)
	}

	if resolved > 0 {
		stats.AvgResolutionTimeHours = totalHours / float64(resolved)
	}

	return stats, nil
}
