package retention

import (
	"fmt"
	"time"

	"github.com/tagsweep/tagsweep/pkg/config"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/registry"
)

const (
	// reasons for retention.
	protectedRuleName = "protectedTags"
	keepCountRuleName = "keepCount"
	maxAgeRuleName    = "maxAgeDays"

	retainedStrFormat = "retained by %s policy"
)

// Decision partitions a repository's tags. Keep also contains protected
// tags; both lists preserve the evaluation order (push time descending, name
// ascending).
type Decision struct {
	Keep   []*Candidate
	Delete []*Candidate
}

type Evaluator struct {
	regex    *RegexMatcher
	dryRun   bool
	log      zlog.Logger
	auditLog *zlog.Logger
}

func NewEvaluator(dryRun bool, log zlog.Logger, auditLog *zlog.Logger) *Evaluator {
	return &Evaluator{
		regex:    NewRegexMatcher(),
		dryRun:   dryRun,
		log:      log,
		auditLog: auditLog,
	}
}

// Evaluate computes the keep/delete partition for one repository. It is
// deterministic given identical inputs and performs no registry I/O; now is
// passed in so age cutoffs are stable within a run.
func (e *Evaluator) Evaluate(repo string, policy config.RetentionPolicy, tags []registry.TagInfo,
	now time.Time,
) Decision {
	candidates := GetCandidates(tags)
	SortCandidates(candidates)

	maxAge, hasAge := policy.MaxAge()
	cutoff := now.Add(-maxAge)

	decision := Decision{
		Keep:   make([]*Candidate, 0, len(candidates)),
		Delete: make([]*Candidate, 0),
	}

	rank := 0

	for _, candidate := range candidates {
		if e.regex.Matches(candidate.Tag, policy.ProtectedTags) {
			// protected tags are never evaluated against rank or age
			candidate.RetainedBy = protectedRuleName
			decision.Keep = append(decision.Keep, candidate)

			e.logDecision(repo, "keep", fmt.Sprintf(retainedStrFormat, protectedRuleName), candidate)

			continue
		}

		inRank := rank < policy.KeepCount
		rank++

		young := candidate.PushedAt.After(cutoff)

		var retain bool

		switch {
		case !hasAge:
			retain = inRank
		case policy.CombineMode() == config.CombineIntersection:
			retain = inRank || young
		default: // union: whichever constraint would delete more, deletes
			retain = inRank && young
		}

		if retain {
			candidate.RetainedBy = e.retainRule(policy, inRank)
			decision.Keep = append(decision.Keep, candidate)

			e.logDecision(repo, "keep", fmt.Sprintf(retainedStrFormat, candidate.RetainedBy), candidate)
		} else {
			candidate.DeleteReason = e.deleteReason(policy, inRank, young, hasAge)
			decision.Delete = append(decision.Delete, candidate)

			e.logDecision(repo, "delete", candidate.DeleteReason, candidate)
		}
	}

	return decision
}

func (e *Evaluator) retainRule(policy config.RetentionPolicy, inRank bool) string {
	if inRank {
		return fmt.Sprintf("%s:%d", keepCountRuleName, policy.KeepCount)
	}

	// only reachable in intersection mode: out of rank but young enough
	return fmt.Sprintf("%s:%d", maxAgeRuleName, *policy.MaxAgeDays)
}

func (e *Evaluator) deleteReason(policy config.RetentionPolicy, inRank, young, hasAge bool) string {
	countReason := fmt.Sprintf("exceeds %s:%d", keepCountRuleName, policy.KeepCount)

	if !hasAge {
		return countReason
	}

	ageReason := fmt.Sprintf("older than %s:%d", maxAgeRuleName, *policy.MaxAgeDays)

	switch {
	case policy.CombineMode() == config.CombineIntersection:
		return countReason + " and " + ageReason
	case inRank:
		return ageReason
	case young:
		return countReason
	default:
		return countReason + " and " + ageReason
	}
}

func (e *Evaluator) logDecision(repo, decision, reason string, candidate *Candidate) {
	logAction(repo, decision, reason, candidate, e.dryRun, &e.log)

	if e.auditLog != nil {
		logAction(repo, decision, reason, candidate, e.dryRun, e.auditLog)
	}
}

func logAction(repo, decision, reason string, candidate *Candidate, dryRun bool, log *zlog.Logger) {
	log.Info().Str("module", "retention").
		Bool("dry-run", dryRun).
		Str("repository", repo).
		Str("digest", candidate.Digest.String()).
		Str("tag", candidate.Tag).
		Str("pushTimestamp", candidate.PushedAt.String()).
		Str("decision", decision).
		Str("reason", reason).Msg("applied policy")
}
