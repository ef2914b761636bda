package repository

import (
	"context"
	"time"
)

const countAssignmentsSinceQuery = `SELECT COUNT(*)
	FROM lead_activities
	WHERE type = 'ASSIGNMENT' AND created_at >= $1`

// CountAssignmentsSince counts ASSIGNMENT activities created at or after the
// given instant. The stats view passes local midnight to get today's total.
func (r *Repository) CountAssignmentsSince(ctx context.Context, since time.Time) (int, error) {
	return r.countQuery(ctx, countAssignmentsSinceQuery, since)
}
