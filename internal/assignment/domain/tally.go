package domain

import "github.com/google/uuid"

// Tally tracks per-gestor active-lead counts during a single auto-assign
// run. Counts are seeded once from the store and then mutated locally as
// tentative assignments are made, so later leads in the same run see the
// load added by earlier ones. A Tally is never shared across runs.
type Tally struct {
	counts map[uuid.UUID]int
}

// NewTally copies the seed counts into a fresh tally.
func NewTally(seed map[uuid.UUID]int) *Tally {
	counts := make(map[uuid.UUID]int, len(seed))
	for id, n := range seed {
		counts[id] = n
	}
	return &Tally{counts: counts}
}

// Count returns the tallied active-lead count for a gestor.
func (t *Tally) Count(gestorID uuid.UUID) int {
	return t.counts[gestorID]
}

// Increment records a tentative assignment.
func (t *Tally) Increment(gestorID uuid.UUID) {
	t.counts[gestorID]++
}

// LeastLoaded picks the candidate with the lowest tallied count. Ties keep
// the earliest candidate, so the caller's ordering (name order) is the
// tie-break. Returns false when there are no candidates.
func (t *Tally) LeastLoaded(candidates []Gestor) (Gestor, bool) {
	if len(candidates) == 0 {
		return Gestor{}, false
	}

	best := candidates[0]
	bestCount := t.Count(best.ID)
	for _, candidate := range candidates[1:] {
		if count := t.Count(candidate.ID); count < bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best, true
}
