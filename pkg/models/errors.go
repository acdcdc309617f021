package models

import "errors"

// Error kinds. Callers wrap the underlying cause with
// fmt.Errorf("%w: %w", kind, cause) so that errors.Is matches both.
var (
	// ErrFetchFailed means the JIRA search could not be sent or returned a non-success status.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrDecodeFailed means the JIRA response did not parse into a search result.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrPostFailed means the Slack message could not be posted.
	ErrPostFailed = errors.New("post failed")

	// ErrConfigMissing means a required configuration value is absent.
	ErrConfigMissing = errors.New("config missing")

	// ErrValidationFailed means an inbound trigger request is malformed.
	ErrValidationFailed = errors.New("validation failed")
)
