package digest

import (
	"context"
	"time"

	"github.com/danielolaszy/nudge/internal/logging"
	"github.com/danielolaszy/nudge/pkg/models"
)

// IssueFetcher runs a JIRA search.
type IssueFetcher interface {
	FetchIssues(ctx context.Context, query string) (*models.SearchResult, error)
}

// MessagePoster posts a message to a chat channel.
type MessagePoster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// Pipeline fetches issues, renders the digest and posts it. It holds no
// mutable state; its collaborators are shared read-only.
type Pipeline struct {
	fetcher   IssueFetcher
	formatter *Formatter
	poster    MessagePoster
}

// NewPipeline creates a Pipeline from its three steps.
func NewPipeline(fetcher IssueFetcher, formatter *Formatter, poster MessagePoster) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		formatter: formatter,
		poster:    poster,
	}
}

// Run performs one digest run. The first failing step aborts the run and its
// error is returned unchanged, so nothing is posted unless the fetch succeeded.
func (p *Pipeline) Run(ctx context.Context, input models.PipelineInput) error {
	start := time.Now()

	text, count, err := p.render(ctx, input.Query, input.MentionTarget)
	if err != nil {
		return err
	}

	if err := p.poster.PostMessage(ctx, input.Channel, text); err != nil {
		return err
	}

	logging.Info("digest posted",
		"channel", input.Channel,
		"issue_count", count,
		"duration", time.Since(start))

	return nil
}

// Preview fetches and renders a digest without posting it.
func (p *Pipeline) Preview(ctx context.Context, query, mentionTarget string) (string, error) {
	text, _, err := p.render(ctx, query, mentionTarget)
	return text, err
}

func (p *Pipeline) render(ctx context.Context, query, mentionTarget string) (string, int, error) {
	result, err := p.fetcher.FetchIssues(ctx, query)
	if err != nil {
		return "", 0, err
	}
	return p.formatter.Render(result.Issues, mentionTarget), len(result.Issues), nil
}
