package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/tagsweep/tagsweep/pkg/retention"
)

const (
	colTagIndex = iota
	colPushedIndex
	colDigestIndex
	colDecisionIndex
	colReasonIndex
	tableCols
)

const digestShortLen = 12

func getTableWriter(writer io.Writer) *tablewriter.Table {
	symbols := tw.NewSymbolCustom("Spaces").
		WithRow("").
		WithColumn(" ").
		WithTopLeft("").
		WithTopMid("").
		WithTopRight("").
		WithMidLeft("").
		WithCenter("").
		WithMidRight("").
		WithBottomLeft("").
		WithBottomMid("").
		WithBottomRight("")

	table := tablewriter.NewWriter(writer)

	table.Options(
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Symbols: symbols,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader:     tw.Off,
					ShowFooter:     tw.Off,
					BetweenRows:    tw.Off,
					BetweenColumns: tw.On,
				},
			},
		}),
		tablewriter.WithPadding(tw.Padding{
			Left:  "",
			Right: "",
		}),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
	)

	return table
}

func decisionRow(candidate *retention.Candidate, decision string, now time.Time) []string {
	row := make([]string, tableCols)

	pushed := "unknown"
	if !candidate.PushedAt.IsZero() {
		pushed = humanize.RelTime(candidate.PushedAt, now, "ago", "from now")
	}

	digest := candidate.Digest.Encoded()
	if len(digest) > digestShortLen {
		digest = digest[:digestShortLen]
	}

	reason := candidate.RetainedBy
	if decision == "delete" {
		reason = candidate.DeleteReason
	}

	row[colTagIndex] = candidate.Tag
	row[colPushedIndex] = pushed
	row[colDigestIndex] = digest
	row[colDecisionIndex] = decision
	row[colReasonIndex] = reason

	return row
}

// PrintDecision renders the keep/delete partition of one repository.
func PrintDecision(resultWriter io.Writer, repo string, decision retention.Decision, now time.Time) {
	var builder strings.Builder

	table := getTableWriter(&builder)

	header := make([]string, tableCols)
	header[colTagIndex] = "TAG"
	header[colPushedIndex] = "PUSHED"
	header[colDigestIndex] = "DIGEST"
	header[colDecisionIndex] = "DECISION"
	header[colReasonIndex] = "REASON"
	table.Append(header) //nolint:errcheck

	for _, candidate := range decision.Keep {
		table.Append(decisionRow(candidate, "keep", now)) //nolint:errcheck
	}

	for _, candidate := range decision.Delete {
		table.Append(decisionRow(candidate, "delete", now)) //nolint:errcheck
	}

	table.Render() //nolint:errcheck

	fmt.Fprintf(resultWriter, "REPOSITORY %s\n", repo)
	fmt.Fprint(resultWriter, builder.String())
	fmt.Fprintln(resultWriter)
}

// PrintReport renders the aggregate outcome of one run.
func PrintReport(resultWriter io.Writer, report retention.Report) {
	fmt.Fprintf(resultWriter, "REPOSITORY %s: kept=%d deleted=%d alreadyGone=%d failed=%d status=%s\n",
		report.Repository, report.Kept, report.Deleted, report.AlreadyGone, report.Failed, report.Status)

	for _, failure := range report.Failures {
		fmt.Fprintf(resultWriter, "  failed: %s: %s\n", failure.Tag, failure.Reason)
	}
}
