// Package retention decides which tags of a repository survive a cleanup
// pass and applies the deletions.
package retention

import (
	"sort"
	"time"

	godigest "github.com/opencontainers/go-digest"

	"github.com/tagsweep/tagsweep/pkg/registry"
)

// Candidate is one tag under evaluation. RetainedBy and DeleteReason are
// filled in by the evaluator for auditing.
type Candidate struct {
	Tag          string
	Digest       godigest.Digest
	PushedAt     time.Time
	RetainedBy   string
	DeleteReason string
}

func GetCandidates(tags []registry.TagInfo) []*Candidate {
	candidates := make([]*Candidate, 0, len(tags))

	for _, tag := range tags {
		candidates = append(candidates, &Candidate{
			Tag:      tag.Name,
			Digest:   tag.Digest,
			PushedAt: tag.PushedAt,
		})
	}

	return candidates
}

// SortCandidates orders candidates by push time descending, ties broken by
// tag name ascending, so that decisions and reports are reproducible across
// runs given identical input state.
func SortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PushedAt.Equal(candidates[j].PushedAt) {
			return candidates[i].Tag < candidates[j].Tag
		}

		return candidates[i].PushedAt.After(candidates[j].PushedAt)
	})
}
