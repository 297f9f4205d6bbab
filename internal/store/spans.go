package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// prepareSpans validates spans and fills identifiers and timestamps.
func prepareSpans(noteID string, spans []TextSpan, now time.Time) ([]TextSpan, error) {
	out := make([]TextSpan, len(spans))
	for i, s := range spans {
		if s.Start < 0 || s.Start >= s.End {
			return nil, fmt.Errorf("%w: [%d,%d) %s", ErrInvalidSpan, s.Start, s.End, s.Label)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.NoteID = noteID
		out[i] = s
	}
	return out, nil
}

func sortSpans(spans []TextSpan) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
}
