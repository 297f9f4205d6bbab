package secrets

import "sort"

// ResolveOverlaps reduces candidates to a start-ordered set in which no two
// detections intersect.
//
// Candidates are visited once in ascending start order. A candidate that
// intersects nothing already accepted is accepted. A conflicting candidate
// replaces every accepted detection it intersects only when its severity
// score is strictly greater than the highest of theirs; otherwise it is
// dropped. Dropped candidates are never reconsidered, so the result is
// locally consistent but not guaranteed to be the maximum-severity cover
// when three or more detections overlap in a chain.
func ResolveOverlaps(candidates []Detection) []Detection {
	if len(candidates) == 0 {
		return []Detection{}
	}

	sorted := make([]Detection, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	accepted := make([]Detection, 0, len(sorted))
	for _, c := range sorted {
		conflict := false
		maxScore := 0
		for _, a := range accepted {
			if a.Intersects(c) {
				conflict = true
				if s := a.Severity.Score(); s > maxScore {
					maxScore = s
				}
			}
		}

		if !conflict {
			accepted = append(accepted, c)
			continue
		}
		if c.Severity.Score() <= maxScore {
			continue
		}

		kept := accepted[:0]
		for _, a := range accepted {
			if !a.Intersects(c) {
				kept = append(kept, a)
			}
		}
		accepted = append(kept, c)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}
