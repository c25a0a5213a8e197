// Package actions is the boundary the orchestration layer calls. Each action
// wraps one gateway operation and turns every failure into a result value.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"roamfree/internal/models"
	"roamfree/internal/planning"
)

const (
	MsgGenerateFailed  = "Failed to generate route: AI returned invalid data."
	MsgSummarizeFailed = "Failed to summarize route: AI returned invalid data."
	MsgAdjustFailed    = "Failed to adjust route: AI returned invalid data."
)

// GenerateResult holds either Route or Error.
type GenerateResult struct {
	Route *planning.GenerateOutput `json:"route,omitempty"`
	Error string                   `json:"error,omitempty"`
}

// SummarizeResult holds either Summary or Error.
type SummarizeResult struct {
	Summary *models.RouteSummary `json:"summary,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// AdjustResult holds either Adjustment or Error.
type AdjustResult struct {
	Adjustment *models.RouteAdjustment `json:"adjustment,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// Failed reports whether the action returned an error value.
func (r GenerateResult) Failed() bool  { return r.Error != "" }
func (r SummarizeResult) Failed() bool { return r.Error != "" }
func (r AdjustResult) Failed() bool    { return r.Error != "" }

// Actions is what the orchestration layer depends on.
type Actions interface {
	GenerateExplorationRoute(ctx context.Context, in planning.GenerateInput) GenerateResult
	SummarizeGeneratedRoute(ctx context.Context, in planning.SummarizeInput) SummarizeResult
	AdjustExplorationRoute(ctx context.Context, in planning.AdjustInput) AdjustResult
}

// Service implements Actions over a planning gateway.
type Service struct {
	gateway planning.Gateway
	logger  *slog.Logger
}

// NewService creates the action layer.
func NewService(gateway planning.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, logger: logger}
}

// GenerateExplorationRoute asks for a new route. A nil locations list counts as a failure.
func (s *Service) GenerateExplorationRoute(ctx context.Context, in planning.GenerateInput) (res GenerateResult) {
	defer s.recoverPanic("generateExplorationRoute", &res.Error, MsgGenerateFailed)

	out, err := s.gateway.GenerateRoute(ctx, in)
	if err != nil {
		s.logger.Error("generateExplorationRoute failed", "error", err)
		return GenerateResult{Error: MsgGenerateFailed}
	}
	if out == nil || out.Locations == nil {
		s.logger.Error("generateExplorationRoute returned no locations")
		return GenerateResult{Error: MsgGenerateFailed}
	}
	return GenerateResult{Route: out}
}

// SummarizeGeneratedRoute asks for a narrative summary. Any string, including
// an empty one, is a valid summary.
func (s *Service) SummarizeGeneratedRoute(ctx context.Context, in planning.SummarizeInput) (res SummarizeResult) {
	defer s.recoverPanic("summarizeGeneratedRoute", &res.Error, MsgSummarizeFailed)

	out, err := s.gateway.SummarizeRoute(ctx, in)
	if err != nil {
		s.logger.Error("summarizeGeneratedRoute failed", "error", err)
		return SummarizeResult{Error: MsgSummarizeFailed}
	}
	if out == nil {
		s.logger.Error("summarizeGeneratedRoute returned no summary")
		return SummarizeResult{Error: MsgSummarizeFailed}
	}
	return SummarizeResult{Summary: out}
}

// AdjustExplorationRoute asks for alternative routes. A nil alternativeRoutes list counts as a failure.
func (s *Service) AdjustExplorationRoute(ctx context.Context, in planning.AdjustInput) (res AdjustResult) {
	defer s.recoverPanic("adjustExplorationRoute", &res.Error, MsgAdjustFailed)

	out, err := s.gateway.AdjustRoute(ctx, in)
	if err != nil {
		s.logger.Error("adjustExplorationRoute failed", "error", err)
		return AdjustResult{Error: MsgAdjustFailed}
	}
	if out == nil || out.AlternativeRoutes == nil {
		s.logger.Error("adjustExplorationRoute returned no alternatives")
		return AdjustResult{Error: MsgAdjustFailed}
	}
	return AdjustResult{Adjustment: out}
}

// recover turns a panic in the gateway into an error value.
func (s *Service) recoverPanic(action string, errField *string, msg string) {
	if r := recover(); r != nil {
		s.logger.Error("action panicked", "action", action, "panic", fmt.Sprint(r))
		*errField = msg
	}
}

var _ Actions = (*Service)(nil)
