package judge

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Review is the judge's verdict: one reasoning-quality score in [0, 1] per
// agent, plus a free-text narrative carried alongside the per-agent scores.
type Review struct {
	Scores    map[string]float64 `json:"scores"`
	Narrative string             `json:"narrative"`
}

// Judge scores the reasoning quality of each agent's decision transcript.
// Callers must treat failures as score 0, never as fatal to a run.
type Judge interface {
	Review(ctx context.Context, transcripts map[string]string) (Review, error)
}

// NopJudge scores every agent 0 without external calls. Used when no judge
// endpoint is configured.
type NopJudge struct{}

func (NopJudge) Review(_ context.Context, transcripts map[string]string) (Review, error) {
	scores := make(map[string]float64, len(transcripts))
	for name := range transcripts {
		scores[name] = 0
	}
	return Review{Scores: scores, Narrative: "no judge configured"}, nil
}

// HTTPJudge posts the transcripts to an external judge endpoint.
type HTTPJudge struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewHTTPJudge creates a judge client for the given endpoint.
func NewHTTPJudge(url string, logger *zap.Logger) *HTTPJudge {
	return &HTTPJudge{client: resty.New(), url: url, logger: logger}
}

// Review sends all transcripts in one request and decodes the scores.
func (j *HTTPJudge) Review(ctx context.Context, transcripts map[string]string) (Review, error) {
	var review Review
	resp, err := j.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"transcripts": transcripts}).
		SetResult(&review).
		Post(j.url)
	if err != nil {
		return Review{}, fmt.Errorf("judge call failed: %w", err)
	}
	if resp.IsError() {
		return Review{}, fmt.Errorf("judge returned status %s", resp.Status())
	}

	// Out-of-range scores are clamped rather than rejected.
	for name, score := range review.Scores {
		if score < 0 {
			review.Scores[name] = 0
		} else if score > 1 {
			review.Scores[name] = 1
		}
	}
	return review, nil
}
