// Package planning holds the schema contracts for the three planning
// operations and the gateway that runs them against a language model.
package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"roamfree/internal/llm"
	"roamfree/internal/models"
	"roamfree/internal/validation"
)

const (
	OpGenerate  = "generate"
	OpSummarize = "summarize"
	OpAdjust    = "adjust"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// Gateway runs the planning operations. Every error it returns matches ErrGenerationFailed.
type Gateway interface {
	GenerateRoute(ctx context.Context, in GenerateInput) (*GenerateOutput, error)
	SummarizeRoute(ctx context.Context, in SummarizeInput) (*models.RouteSummary, error)
	AdjustRoute(ctx context.Context, in AdjustInput) (*models.RouteAdjustment, error)
}

type gateway struct {
	client      llm.Completer
	timeout     time.Duration
	temperature *float64
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures the gateway.
type Option func(*gateway)

// WithTimeout bounds each model call. Zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithTemperature sets the sampling temperature sent with every call.
func WithTemperature(t float64) Option {
	return func(g *gateway) {
		g.temperature = &t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *gateway) {
		g.logger = logger
	}
}

// WithMetrics records call outcomes.
func WithMetrics(m *Metrics) Option {
	return func(g *gateway) {
		g.metrics = m
	}
}

// NewGateway creates a gateway over client.
func NewGateway(client llm.Completer, opts ...Option) Gateway {
	g := &gateway{
		client:  client,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gateway) GenerateRoute(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	var wire generateWire
	if err := g.call(ctx, OpGenerate, generateTemplate, in, in, &wire); err != nil {
		return nil, err
	}
	return wire.output(), nil
}

func (g *gateway) SummarizeRoute(ctx context.Context, in SummarizeInput) (*models.RouteSummary, error) {
	var wire summarizeWire
	if err := g.call(ctx, OpSummarize, summarizeTemplate, in, newSummarizePromptData(in), &wire); err != nil {
		return nil, err
	}
	return wire.output(), nil
}

func (g *gateway) AdjustRoute(ctx context.Context, in AdjustInput) (*models.RouteAdjustment, error) {
	var wire adjustWire
	if err := g.call(ctx, OpAdjust, adjustTemplate, in, in, &wire); err != nil {
		return nil, err
	}
	return wire.output(), nil
}

// call validates input, renders the prompt, sends it and decodes the reply into out.
func (g *gateway) call(ctx context.Context, op string, tmpl *template.Template, input, data, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		g.metrics.observe(op, err, time.Since(start))
		if err != nil {
			g.logger.Warn("planning call failed", "operation", op, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			g.logger.Info("planning call succeeded", "operation", op, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	if verr := validation.Struct(input); verr != nil {
		return failed(op, "invalid input: "+verr.Error(), verr)
	}

	prompt, rerr := render(tmpl, data)
	if rerr != nil {
		return failed(op, "could not build prompt", rerr)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, cerr := g.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		JSONMode:    true,
	})
	if cerr != nil {
		if errors.Is(cerr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed(op, fmt.Sprintf("model did not answer within %s", g.timeout), cerr)
		}
		return failed(op, "model call failed", cerr)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return failed(op, "model returned an empty response", nil)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return failed(op, "model response contained no JSON object", nil)
	}
	if jerr := json.Unmarshal([]byte(raw), out); jerr != nil {
		return failed(op, "model response is not valid JSON for the schema", jerr)
	}
	if verr := validation.Struct(out); verr != nil {
		return failed(op, "model response failed validation: "+verr.Error(), verr)
	}
	return nil
}
