package retention

import (
	"context"
	"errors"
	"sync"

	godigest "github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"

	tserr "github.com/tagsweep/tagsweep/errors"
	"github.com/tagsweep/tagsweep/pkg/common"
	zlog "github.com/tagsweep/tagsweep/pkg/log"
	"github.com/tagsweep/tagsweep/pkg/registry"
)

type OutcomeResult string

const (
	ResultDeleted     OutcomeResult = "deleted"
	ResultAlreadyGone OutcomeResult = "alreadyGone"
	ResultFailed      OutcomeResult = "failed"
)

// Outcome records what happened to one tag of the delete set.
type Outcome struct {
	Tag    string
	Digest godigest.Digest
	Result OutcomeResult
	Reason string
}

type RunStatus string

const (
	// StatusComplete means every tag of the delete set was attempted.
	StatusComplete RunStatus = "complete"
	// StatusIncomplete means the run was cancelled mid-batch; already-issued
	// deletions are not rolled back and only observed outcomes are reported.
	StatusIncomplete RunStatus = "incomplete"
)

// Executor applies a Decision's delete set against the registry. Per-tag
// failures are recorded, never returned: one failing tag must not abort the
// batch, so retention keeps making progress across scheduled runs.
type Executor struct {
	client   registry.Client
	workers  int
	log      zlog.Logger
	auditLog *zlog.Logger
}

func NewExecutor(client registry.Client, workers int, log zlog.Logger, auditLog *zlog.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}

	return &Executor{
		client:   client,
		workers:  workers,
		log:      log,
		auditLog: auditLog,
	}
}

// Apply deletes every candidate in deleteSet, in the evaluator's order.
// Running it twice over the same set yields alreadyGone outcomes the second
// time: the desired end state, tag absent, already holds.
func (e *Executor) Apply(ctx context.Context, repo string, deleteSet []*Candidate) ([]Outcome, RunStatus) {
	if e.workers == 1 {
		return e.applySequential(ctx, repo, deleteSet)
	}

	return e.applyParallel(ctx, repo, deleteSet)
}

func (e *Executor) applySequential(ctx context.Context, repo string, deleteSet []*Candidate) ([]Outcome, RunStatus) {
	outcomes := make([]Outcome, 0, len(deleteSet))

	for _, candidate := range deleteSet {
		if common.IsContextDone(ctx) {
			return outcomes, StatusIncomplete
		}

		outcomes = append(outcomes, e.deleteOne(ctx, repo, candidate))
	}

	return outcomes, StatusComplete
}

func (e *Executor) applyParallel(ctx context.Context, repo string, deleteSet []*Candidate) ([]Outcome, RunStatus) {
	var wg sync.WaitGroup

	// outcomes are indexed by candidate position so the report stays in the
	// evaluator's deterministic order regardless of worker interleaving
	outcomes := make([]Outcome, len(deleteSet))
	attempted := make([]bool, len(deleteSet))
	semaphore := make(chan struct{}, e.workers)

	status := StatusComplete

	for idx, candidate := range deleteSet {
		if common.IsContextDone(ctx) {
			status = StatusIncomplete

			break
		}

		semaphore <- struct{}{}

		wg.Add(1)

		go func(idx int, candidate *Candidate) {
			defer wg.Done()
			defer func() { <-semaphore }()

			// a failure in one concurrent deletion must not cancel others
			outcomes[idx] = e.deleteOne(ctx, repo, candidate)
			attempted[idx] = true
		}(idx, candidate)
	}

	wg.Wait()

	observed := make([]Outcome, 0, len(deleteSet))

	for idx := range outcomes {
		if attempted[idx] {
			observed = append(observed, outcomes[idx])
		}
	}

	return observed, status
}

func (e *Executor) deleteOne(ctx context.Context, repo string, candidate *Candidate) Outcome {
	outcome := Outcome{
		Tag:    candidate.Tag,
		Digest: candidate.Digest,
	}

	err := e.client.DeleteTag(ctx, repo, candidate.Tag)

	switch {
	case err == nil:
		outcome.Result = ResultDeleted
	case errors.Is(err, tserr.ErrTagNotFound):
		// the desired end state (tag absent) already holds, typically
		// because another tag sharing the manifest was deleted first
		outcome.Result = ResultAlreadyGone
	default:
		outcome.Result = ResultFailed
		outcome.Reason = err.Error()
	}

	e.logOutcome(repo, outcome)

	return outcome
}

func (e *Executor) logOutcome(repo string, outcome Outcome) {
	loggers := []*zlog.Logger{&e.log}
	if e.auditLog != nil {
		loggers = append(loggers, e.auditLog)
	}

	for _, logger := range loggers {
		var event *zerolog.Event

		if outcome.Result == ResultFailed {
			event = logger.Warn()
		} else {
			event = logger.Info()
		}

		event.Str("module", "retention").
			Str("repository", repo).
			Str("tag", outcome.Tag).
			Str("digest", outcome.Digest.String()).
			Str("result", string(outcome.Result)).
			Str("reason", outcome.Reason).Msg("applied deletion")
	}
}
