package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielolaszy/nudge/internal/digest"
	"github.com/danielolaszy/nudge/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSubmitter records submitted runs and returns Err
type MockSubmitter struct {
	mu     sync.Mutex
	Err    error
	Inputs []models.PipelineInput
}

func (m *MockSubmitter) Submit(_ context.Context, input models.PipelineInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inputs = append(m.Inputs, input)
	return m.Err
}

func serve(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestInvoke(t *testing.T) {
	for _, path := range []string{"/invoke", "/"} {
		t.Run(path, func(t *testing.T) {
			submitter := &MockSubmitter{}
			s := NewServer(submitter, "127.0.0.1:0")

			rec := serve(t, s, http.MethodPost, path,
				`{"channel": " #mbe-reviews ", "jql": "project = \"Mobile Backend\"", "at": "@mbe-devs"}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `"ok"`, rec.Body.String())

			_, err := uuid.Parse(rec.Header().Get("X-Run-Id"))
			assert.NoError(t, err, "every run gets an id")

			require.Len(t, submitter.Inputs, 1)
			assert.Equal(t, models.PipelineInput{
				Query:         "project%20%3D%20%22Mobile%20Backend%22",
				Channel:       "#mbe-reviews",
				MentionTarget: "@mbe-devs",
			}, submitter.Inputs[0])
		})
	}
}

func TestInvokeEmptyMention(t *testing.T) {
	submitter := &MockSubmitter{}
	s := NewServer(submitter, "127.0.0.1:0")

	rec := serve(t, s, http.MethodPost, "/invoke", `{"channel": "#c", "jql": "project = MBE", "at": ""}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, submitter.Inputs, 1)
	assert.Equal(t, "", submitter.Inputs[0].MentionTarget)
}

func TestInvokeValidation(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "Empty body", body: ``, contains: "invalid request body"},
		{name: "Malformed JSON", body: `{"channel": `, contains: "invalid request body"},
		{name: "Wrong field type", body: `{"channel": 5, "jql": "q", "at": "@t"}`, contains: "invalid request body"},
		{name: "Missing jql", body: `{"channel": "#c", "at": "@t"}`, contains: "jql"},
		{name: "Blank channel", body: `{"channel": "  ", "jql": "q", "at": "@t"}`, contains: "channel"},
		{name: "Missing at", body: `{"channel": "#c", "jql": "q"}`, contains: "at"},
		{name: "Everything missing", body: `{}`, contains: "[channel jql at]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			submitter := &MockSubmitter{}
			s := NewServer(submitter, "127.0.0.1:0")

			rec := serve(t, s, http.MethodPost, "/invoke", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, "validation_failed", body["code"])
			assert.Contains(t, body["error"], tc.contains)
			assert.Empty(t, submitter.Inputs, "the pipeline is not invoked for invalid requests")
		})
	}
}

func TestInvokeErrorMapping(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "Fetch failed",
			err:    fmt.Errorf("%w: jira search returned status 503", models.ErrFetchFailed),
			status: http.StatusBadGateway,
			code:   "fetch_failed",
		},
		{
			name:   "Decode failed",
			err:    fmt.Errorf("%w: missing key", models.ErrDecodeFailed),
			status: http.StatusBadGateway,
			code:   "decode_failed",
		},
		{
			name:   "Post failed",
			err:    fmt.Errorf("%w: slack error: channel_not_found", models.ErrPostFailed),
			status: http.StatusBadGateway,
			code:   "post_failed",
		},
		{
			name:   "Run timed out inside a fetch",
			err:    fmt.Errorf("%w: %w", models.ErrFetchFailed, context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
			code:   "timeout",
		},
		{
			name:   "Runner closed",
			err:    ErrRunnerClosed,
			status: http.StatusServiceUnavailable,
			code:   "unavailable",
		},
		{
			name:   "Unknown",
			err:    fmt.Errorf("something else"),
			status: http.StatusInternalServerError,
			code:   "internal",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(&MockSubmitter{Err: tc.err}, "127.0.0.1:0")

			rec := serve(t, s, http.MethodPost, "/invoke", `{"channel": "#c", "jql": "q", "at": "@t"}`)

			assert.Equal(t, tc.status, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, tc.err.Error(), body["error"])
			assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))
		})
	}
}

func TestInvokeMethodNotAllowed(t *testing.T) {
	s := NewServer(&MockSubmitter{}, "127.0.0.1:0")

	rec := serve(t, s, http.MethodGet, "/invoke", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	s := NewServer(&MockSubmitter{}, "127.0.0.1:0")

	rec := serve(t, s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"ok"`, rec.Body.String())
}

func TestServeStopsOnCancel(t *testing.T) {
	s := NewServer(&MockSubmitter{}, "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

// eventLog records pipeline steps across goroutines
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type recordingFetcher struct {
	log *eventLog
}

func (f *recordingFetcher) FetchIssues(_ context.Context, query string) (*models.SearchResult, error) {
	f.log.add("fetch " + query)
	return &models.SearchResult{}, nil
}

// blockingPoster holds every post until released
type blockingPoster struct {
	log     *eventLog
	entered chan string
	release chan struct{}
}

func (p *blockingPoster) PostMessage(ctx context.Context, channel, _ string) error {
	p.log.add("post-start " + channel)
	p.entered <- channel
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.log.add("post-end " + channel)
	return nil
}

func awaitPost(t *testing.T, entered <-chan string) string {
	t.Helper()
	select {
	case channel := <-entered:
		return channel
	case <-time.After(2 * time.Second):
		t.Fatal("post never started")
		return ""
	}
}

func TestConcurrentTriggersDoNotInterleave(t *testing.T) {
	log := &eventLog{}
	poster := &blockingPoster{log: log, entered: make(chan string, 2), release: make(chan struct{})}
	pipeline := digest.NewPipeline(&recordingFetcher{log: log}, digest.NewFormatter("https://jira.example.com"), poster)
	runner := NewRunner(pipeline, 4, 5*time.Second)
	defer runner.Close()

	ts := httptest.NewServer(NewServer(runner, "127.0.0.1:0").Handler())
	defer ts.Close()

	trigger := func(channel, jql string) <-chan int {
		status := make(chan int, 1)
		go func() {
			body := fmt.Sprintf(`{"channel": %q, "jql": %q, "at": "@team"}`, channel, jql)
			resp, err := http.Post(ts.URL+"/invoke", "application/json", strings.NewReader(body))
			if err != nil {
				status <- -1
				return
			}
			resp.Body.Close()
			status <- resp.StatusCode
		}()
		return status
	}

	first := trigger("#a", "project = A")
	require.Equal(t, "#a", awaitPost(t, poster.entered))

	second := trigger("#b", "project = B")
	assert.Never(t, func() bool { return len(log.snapshot()) > 2 }, 100*time.Millisecond, 10*time.Millisecond,
		"the second run must wait for the first post to finish")

	poster.release <- struct{}{}
	require.Equal(t, "#b", awaitPost(t, poster.entered))
	poster.release <- struct{}{}

	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, http.StatusOK, <-second)
	assert.Equal(t, []string{
		"fetch project%20%3D%20A",
		"post-start #a",
		"post-end #a",
		"fetch project%20%3D%20B",
		"post-start #b",
		"post-end #b",
	}, log.snapshot())
}
