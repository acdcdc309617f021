// Package jira searches JIRA for the issues that go into a digest.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/nudge/internal/auth"
	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/pkg/models"
)

const (
	searchPath = "rest/api/3/search"

	// maxErrorBody caps how much of an error response is read for diagnostics.
	maxErrorBody = 64 << 10
)

// Client handles interactions with the JIRA search API.
type Client struct {
	client *jira.Client
}

// NewClient creates a JIRA client for the site at baseURL. Every request is
// authorized with authorizer and bounded by timeout (zero means no timeout).
func NewClient(baseURL string, authorizer auth.Authorizer, timeout time.Duration) (*Client, error) {
	httpClient := &http.Client{
		Transport: authorizer.Transport(http.DefaultTransport),
		Timeout:   timeout,
	}

	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Debug("jira client configured",
		"base_url", baseURL,
		"auth", authorizer.Scheme().String(),
		"timeout", timeout)

	return &Client{client: client}, nil
}

// FetchIssues runs a single JQL search. The query must already be
// percent-encoded; it is placed into the query string verbatim. Transport
// failures and non-2xx statuses wrap models.ErrFetchFailed; a body that does
// not match the search result shape wraps models.ErrDecodeFailed.
func (c *Client) FetchIssues(ctx context.Context, query string) (*models.SearchResult, error) {
	req, err := c.client.NewRequestWithContext(ctx, http.MethodGet, searchPath+"?jql="+query, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build search request: %w", models.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	logging.Debug("searching jira issues", "jql", query)

	resp, err := c.client.Do(req, nil)
	if err != nil {
		if resp != nil && resp.Response != nil {
			defer resp.Body.Close()
			return nil, fmt.Errorf("%w: jira search returned status %d%s: %w",
				models.ErrFetchFailed, resp.StatusCode, errorDetail(resp.Body), err)
		}
		return nil, fmt.Errorf("%w: failed to search jira issues: %w", models.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read search response: %w", models.ErrFetchFailed, err)
	}

	result, err := decodeSearchResult(body)
	if err != nil {
		return nil, err
	}

	logging.Debug("jira search complete",
		"start_at", result.StartAt,
		"issue_count", len(result.Issues))

	return result, nil
}

// decodeSearchResult converts a search response body into the shared model.
// Issues without a key or an update timestamp are rejected instead of being
// passed on half-filled.
func decodeSearchResult(body []byte) (*models.SearchResult, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode search response: %w", models.ErrDecodeFailed, err)
	}

	result := &models.SearchResult{
		StartAt: sr.StartAt,
		Issues:  make([]models.Issue, 0, len(sr.Issues)),
	}
	for i, is := range sr.Issues {
		if is.Key == "" {
			return nil, fmt.Errorf("%w: issue %d has no key", models.ErrDecodeFailed, i)
		}
		if is.Fields.Updated.Time().IsZero() {
			return nil, fmt.Errorf("%w: issue %s has no updated timestamp", models.ErrDecodeFailed, is.Key)
		}

		var priorityID string
		if is.Fields.Priority != nil {
			priorityID = strings.TrimSpace(is.Fields.Priority.ID)
		}

		result.Issues = append(result.Issues, models.Issue{
			Key:        is.Key,
			Summary:    is.Fields.Summary,
			UpdatedAt:  is.Fields.Updated.Time(),
			Labels:     is.Fields.Labels,
			PriorityID: priorityID,
		})
	}

	return result, nil
}

// errorDetail extracts JIRA's error messages from a failed response body,
// formatted for appending to an error message. It returns "" when the body
// carries nothing useful.
func errorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var jiraErr errorResponse
	if json.Unmarshal(data, &jiraErr) == nil && (len(jiraErr.ErrorMessages) > 0 || len(jiraErr.Errors) > 0) {
		msgs := append([]string(nil), jiraErr.ErrorMessages...)
		fields := make([]string, 0, len(jiraErr.Errors))
		for field := range jiraErr.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			msgs = append(msgs, field+": "+jiraErr.Errors[field])
		}
		return " (" + strings.Join(msgs, "; ") + ")"
	}
	return ""
}
