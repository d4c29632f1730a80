package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Request is one decision query: the full market/account snapshot prompt and
// the decision timestamp. Both participate in the cache key.
type Request struct {
	Prompt    string
	Timestamp time.Time
}

// Source produces a trading decision from a market/account snapshot.
// Implementations: HTTPSource (a live agent behind an endpoint),
// ScriptedSource (rule-based agents and tests) and CachedSource (replay).
type Source interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// ScriptedSource adapts a plain function into a Source.
type ScriptedSource func(prompt string) Decision

func (s ScriptedSource) Decide(_ context.Context, req Request) (Decision, error) {
	return s(req.Prompt), nil
}

// HTTPSource posts the prompt to an agent endpoint and parses the response
// body as a decision. Timeout and retry policy belong to the endpoint's
// resty client, not to the competition loop.
type HTTPSource struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewHTTPSource creates a live decision source for the given endpoint.
func NewHTTPSource(url string, logger *zap.Logger) *HTTPSource {
	return &HTTPSource{
		client: resty.New(),
		url:    url,
		logger: logger,
	}
}

// Decide sends the prompt and degrades unparsable bodies to hold via Parse.
// Transport failures are returned to the caller; what to do with them is the
// driver's policy.
func (s *HTTPSource) Decide(ctx context.Context, req Request) (Decision, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"prompt": req.Prompt}).
		Post(s.url)
	if err != nil {
		return Decision{}, fmt.Errorf("agent call failed: %w", err)
	}
	if resp.IsError() {
		return Decision{}, fmt.Errorf("agent returned status %s", resp.Status())
	}

	d := Parse(resp.String())
	if len(d.Actions) == 0 && d.Reasoning == "" {
		s.logger.Warn("Agent response parsed to an empty decision", zap.String("url", s.url))
	}
	return d, nil
}

// CachedSource consults a Cache before asking its inner source, and stores
// fresh decisions synchronously after a miss.
type CachedSource struct {
	agentName string
	inner     Source
	cache     *Cache
}

// NewCachedSource wraps inner with the cache for the named agent.
func NewCachedSource(agentName string, inner Source, cache *Cache) *CachedSource {
	return &CachedSource{agentName: agentName, inner: inner, cache: cache}
}

func (c *CachedSource) Decide(ctx context.Context, req Request) (Decision, error) {
	ts := req.Timestamp.UTC().Format(time.RFC3339)
	if d, ok := c.cache.Get(c.agentName, req.Prompt, ts); ok {
		return d, nil
	}
	d, err := c.inner.Decide(ctx, req)
	if err != nil {
		return Decision{}, err
	}
	c.cache.Put(c.agentName, req.Prompt, ts, d)
	return d, nil
}
