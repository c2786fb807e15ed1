package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/goodfoods/reservation-platform/pkg/metrics"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

type limitedClient struct {
	Client
	limiter *rate.Limiter
}

// WithRateLimit wraps a client with a token bucket shared by every session.
// A non-positive rate disables limiting.
func WithRateLimit(next Client, perSecond float64, burst int) Client {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedClient{
		Client:  next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Complete waits for the limiter before delegating.
func (c *limitedClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return c.Client.Complete(ctx, req)
}

type instrumentedClient struct {
	Client
}

// WithInstrumentation records completion metrics and spans.
func WithInstrumentation(next Client) Client {
	return &instrumentedClient{Client: next}
}

// Complete times the delegated call.
func (c *instrumentedClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, span := tracing.Tracer("llm").Start(ctx, "llm.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", c.Name()),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
		attribute.String("tool_choice", string(req.ToolChoice)),
	)

	start := time.Now()
	resp, err := c.Client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		metrics.RecordCompletion(c.Name(), "", "error", elapsed, 0, 0)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("tokens_in", resp.TokensIn),
		attribute.Int("tokens_out", resp.TokensOut),
		attribute.Int("tool_calls", len(resp.ToolCalls)),
	)
	metrics.RecordCompletion(c.Name(), resp.Model, "ok", elapsed, resp.TokensIn, resp.TokensOut)
	return resp, nil
}
