package jira

import (
	"encoding/json"
	"fmt"
	"time"

	jira "github.com/andygrunwald/go-jira"
)

// searchResponse is the response from GET /rest/api/3/search.
type searchResponse struct {
	StartAt int     `json:"startAt"`
	Issues  []issue `json:"issues"`
}

type issue struct {
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Summary  string    `json:"summary"`
	Updated  Timestamp `json:"updated"`
	Labels   []string  `json:"labels"`
	Priority *priority `json:"priority"`
}

type priority struct {
	ID string `json:"id"`
}

// errorResponse is the standard JIRA error envelope.
type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// Timestamp accepts both JIRA's native timestamp format
// ("2006-01-02T15:04:05.000-0700") and RFC 3339.
type Timestamp time.Time

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
}

// UnmarshalJSON implements json.Unmarshaler. JSON null is accepted here and
// leaves the zero time; decodeSearchResult rejects an issue whose updated
// time is zero.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var jt jira.Time
	if err := jt.UnmarshalJSON(b); err == nil {
		*t = Timestamp(jt)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string, got %s", string(b))
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Time returns t as a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
