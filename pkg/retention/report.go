package retention

type FailureEntry struct {
	Tag    string
	Reason string
}

// Report aggregates one run over one repository. A run with failures is
// partially successful, never a blanket failure: the failing tags are
// enumerated and everything else made progress.
type Report struct {
	Repository  string
	Kept        int
	Deleted     int
	AlreadyGone int
	Failed      int
	Failures    []FailureEntry
	Status      RunStatus
}

func BuildReport(repo string, decision Decision, outcomes []Outcome, status RunStatus) Report {
	report := Report{
		Repository: repo,
		Kept:       len(decision.Keep),
		Status:     status,
	}

	for _, outcome := range outcomes {
		switch outcome.Result {
		case ResultDeleted:
			report.Deleted++
		case ResultAlreadyGone:
			report.AlreadyGone++
		case ResultFailed:
			report.Failed++
			report.Failures = append(report.Failures, FailureEntry{
				Tag:    outcome.Tag,
				Reason: outcome.Reason,
			})
		}
	}

	return report
}

// Successful reports whether the run completed with no failed deletions.
func (r Report) Successful() bool {
	return r.Failed == 0 && r.Status == StatusComplete
}
