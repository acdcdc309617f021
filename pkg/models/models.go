// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Issue represents a JIRA issue with the fields the digest needs.
// Issues are created fresh per fetch and never modified afterwards.
type Issue struct {
	// Key is the JIRA issue identifier (e.g., "MBE-123")
	Key string

	// Summary is the issue's one-line title
	Summary string

	// UpdatedAt is the timestamp when the issue was last updated
	UpdatedAt time.Time

	// Labels is a slice of label names attached to the issue
	Labels []string

	// PriorityID is the raw JIRA priority id (e.g., "1"). Empty when the
	// issue has no priority.
	PriorityID string
}

// HasPriority reports whether the issue carries a priority id.
func (i Issue) HasPriority() bool {
	return i.PriorityID != ""
}

// SearchResult is one page of a JIRA search.
type SearchResult struct {
	// StartAt is the pagination offset of the page
	StartAt int

	// Issues is the ordered list of issues returned by the search
	Issues []Issue
}

// PipelineInput parameterizes a single digest run.
type PipelineInput struct {
	// Query is the JQL search expression, already percent-encoded
	Query string

	// Channel is the Slack channel the digest is posted to
	Channel string

	// MentionTarget is inserted into the digest to notify its audience (e.g., "@mbe-devs")
	MentionTarget string
}
