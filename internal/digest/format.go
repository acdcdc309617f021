// Package digest turns JIRA search results into a ranked Slack message and
// wires the fetch, render and post steps into a single run.
package digest

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/nudge/pkg/models"
)

// NoPriorityRank is the rank given to issues without a usable priority id.
// It sorts after every parsed priority.
const NoPriorityRank = math.MaxInt

const day = 24 * time.Hour

// IssueReport is the per-issue projection used for ranking and rendering.
type IssueReport struct {
	Link         string
	Summary      string
	PriorityRank int
	AgeInDays    int
}

// Formatter renders digests. The zero value is not usable; build one with
// NewFormatter.
type Formatter struct {
	browseURL string
	now       func() time.Time
}

// NewFormatter creates a Formatter whose issue links point at
// {baseURL}/browse/{key}.
func NewFormatter(baseURL string) *Formatter {
	return &Formatter{
		browseURL: strings.TrimRight(baseURL, "/") + "/browse/",
		now:       time.Now,
	}
}

// WithClock returns a copy of f that measures issue age against now.
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	c := *f
	c.now = now
	return &c
}

// Render builds the digest text for issues, addressed to mentionTarget.
// For a fixed clock the output depends only on the input.
func (f *Formatter) Render(issues []models.Issue, mentionTarget string) string {
	if len(issues) == 0 {
		return fmt.Sprintf("Great job %s . No tickets to review.\nShould we all take a day off?", mentionTarget)
	}

	var lines strings.Builder
	for _, r := range f.Rank(issues) {
		fmt.Fprintf(&lines, "%s: %s (%ddays)\n", r.Link, r.Summary, r.AgeInDays)
	}

	return fmt.Sprintf("%s: the following issues need attention.\n```\n%s```", mentionTarget, lines.String())
}

// Rank projects issues into reports ordered by priority rank ascending and,
// within a rank, by age descending. Equal keys keep their input order.
func (f *Formatter) Rank(issues []models.Issue) []IssueReport {
	now := f.now()

	reports := make([]IssueReport, 0, len(issues))
	for _, issue := range issues {
		reports = append(reports, IssueReport{
			Link:         f.browseURL + issue.Key,
			Summary:      issue.Summary,
			PriorityRank: PriorityRank(issue),
			AgeInDays:    AgeInDays(now, issue.UpdatedAt),
		})
	}

	slices.SortStableFunc(reports, func(a, b IssueReport) int {
		if c := cmp.Compare(a.PriorityRank, b.PriorityRank); c != 0 {
			return c
		}
		return cmp.Compare(b.AgeInDays, a.AgeInDays)
	})

	return reports
}

// PriorityRank parses the issue's priority id. Missing or non-numeric ids
// yield NoPriorityRank.
func PriorityRank(issue models.Issue) int {
	if !issue.HasPriority() {
		return NoPriorityRank
	}
	rank, err := strconv.Atoi(strings.TrimSpace(issue.PriorityID))
	if err != nil {
		return NoPriorityRank
	}
	return rank
}

// AgeInDays returns the whole days elapsed between updated and now,
// truncated toward zero. Timestamps in the future count as zero days.
func AgeInDays(now, updated time.Time) int {
	elapsed := now.Sub(updated)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / day)
}
