// Package mcptools exposes scenario evaluation as Model Context Protocol
// tools served over stdio.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/report"
	"github.com/rshade/commutesim/internal/scenario"
)

// Tool names.
const (
	ToolEvaluate    = "evaluate_scenario"
	ToolValidate    = "validate_scenario"
	ToolListFactors = "list_factors"
)

// Tool call statuses recorded in metrics.
const (
	statusOK          = "ok"
	statusToolError   = "tool_error"
	statusInvalidArgs = "invalid_arguments"
)

// DefaultMaxIndividuals bounds runs x population for one tool call.
const DefaultMaxIndividuals = 10_000_000

// Service backs the tools.
type Service struct {
	evaluator      *cache.Evaluator
	table          *factors.Table
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	maxIndividuals int64
}

// NewService creates a Service. store and m may be nil.
func NewService(e *engine.Engine, table *factors.Table, store cache.Store, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		evaluator:      cache.NewEvaluator(e, store, m),
		table:          table,
		metrics:        m,
		logger:         logger,
		maxIndividuals: DefaultMaxIndividuals,
	}
}

// EvaluateInput is the argument object of evaluate_scenario.
type EvaluateInput struct {
	Scenario    scenario.Spec     `json:"scenario"`
	Factors     *factors.Document `json:"factors,omitempty"`
	Runs        int               `json:"runs,omitempty"`
	Seed        *uint64           `json:"seed,omitempty"`
	IncludeRuns bool              `json:"include_runs,omitempty"`
}

// EvaluateOutput is the result of evaluate_scenario.
type EvaluateOutput struct {
	Result        *engine.AggregateResult `json:"result"`
	Cached        bool                    `json:"cached"`
	Equivalencies string                  `json:"equivalencies,omitempty"`
}

// ValidateOutput is the result of validate_scenario.
type ValidateOutput struct {
	Valid    bool               `json:"valid"`
	Problems []scenario.Problem `json:"problems,omitempty"`
}

// EvaluateTool describes evaluate_scenario.
func EvaluateTool() mcp.Tool {
	return mcp.NewTool(ToolEvaluate,
		mcp.WithDescription("Estimate annual commuting and working-from-home emissions (kg CO2e) for a workforce "+
			"scenario by Monte Carlo simulation. Returns mean, spread and percentiles across runs."),
		mcp.WithObject("scenario",
			mcp.Required(),
			mcp.Description("Scenario: population, region, modes with shares and distance distributions, optional wfh and heating"),
		),
		mcp.WithObject("factors",
			mcp.Description("Optional factor table {name, factors: [{category, mode, subtype, region, value}]}; defaults to the built-in table"),
		),
		mcp.WithNumber("runs",
			mcp.Description("Number of simulation runs; defaults to the scenario's runs or 10"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Seed for reproducible results"),
		),
		mcp.WithBoolean("include_runs",
			mcp.Description("Include per-run totals in the result"),
		),
	)
}

// ValidateTool describes validate_scenario.
func ValidateTool() mcp.Tool {
	return mcp.NewTool(ToolValidate,
		mcp.WithDescription("Check a scenario for problems without evaluating it. Reports every problem found."),
		mcp.WithObject("scenario",
			mcp.Required(),
			mcp.Description("Scenario to validate"),
		),
	)
}

// ListFactorsTool describes list_factors.
func ListFactorsTool() mcp.Tool {
	return mcp.NewTool(ToolListFactors,
		mcp.WithDescription("List the built-in emission factor table"),
		mcp.WithString("category",
			mcp.Description("Only list factors of this category: commute, electricity or heating"),
			mcp.Enum(string(factors.CategoryCommute), string(factors.CategoryElectricity), string(factors.CategoryHeating)),
		),
	)
}

// HandleEvaluate implements evaluate_scenario.
func (s *Service) HandleEvaluate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in EvaluateInput
	if res := s.parse(ToolEvaluate, req, &in); res != nil {
		return res, nil
	}

	cfg, err := scenario.New(in.Scenario)
	if err != nil {
		return s.fail(ctx, ToolEvaluate, err), nil
	}

	table := s.table
	if in.Factors != nil {
		if table, err = factors.FromDocument(*in.Factors, "inline"); err != nil {
			return s.fail(ctx, ToolEvaluate, err), nil
		}
	}

	runs := in.Runs
	if runs == 0 {
		runs = cfg.Runs()
	}
	if err := engine.CheckRuns(runs); err != nil {
		return s.fail(ctx, ToolEvaluate, err), nil
	}
	if engine.Work(runs, cfg.Population()) > s.maxIndividuals {
		return s.fail(ctx, ToolEvaluate,
			fmt.Errorf("runs x population exceeds %d individuals", s.maxIndividuals)), nil
	}

	start := time.Now()
	result, hit, err := s.evaluator.Evaluate(ctx, cfg, table, runs, in.Seed)
	if err != nil {
		return s.fail(ctx, ToolEvaluate, err), nil
	}

	out := EvaluateOutput{Result: result, Cached: hit}
	if !in.IncludeRuns {
		trimmed := *result
		trimmed.RunResults = nil
		out.Result = &trimmed
	}
	if eq, err := report.Calculate(result.Total.Mean); err == nil && !eq.Empty {
		out.Equivalencies = eq.Text
	}

	s.logger.Info().
		Ctx(ctx).
		Str("component", "mcp").
		Str("tool", ToolEvaluate).
		Int("runs", runs).
		Int("population", cfg.Population()).
		Bool("cache_hit", hit).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("tool call complete")

	return s.ok(ToolEvaluate, out), nil
}

// HandleValidate implements validate_scenario.
func (s *Service) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in struct {
		Scenario scenario.Spec `json:"scenario"`
	}
	if res := s.parse(ToolValidate, req, &in); res != nil {
		return res, nil
	}

	_, err := scenario.New(in.Scenario)
	var cerr *scenario.ConfigurationError
	switch {
	case err == nil:
		return s.ok(ToolValidate, ValidateOutput{Valid: true}), nil
	case errors.As(err, &cerr):
		return s.ok(ToolValidate, ValidateOutput{Valid: false, Problems: cerr.Problems}), nil
	default:
		return s.fail(ctx, ToolValidate, err), nil
	}
}

// HandleListFactors implements list_factors.
func (s *Service) HandleListFactors(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in struct {
		Category string `json:"category,omitempty"`
	}
	if res := s.parse(ToolListFactors, req, &in); res != nil {
		return res, nil
	}

	doc := s.table.Document()
	if in.Category != "" {
		filtered := doc.Factors[:0:0]
		for _, e := range doc.Factors {
			if string(e.Category) == in.Category {
				filtered = append(filtered, e)
			}
		}
		doc.Factors = filtered
	}
	return s.ok(ToolListFactors, doc), nil
}

// parse decodes the call arguments into v. It returns a tool error result
// when they do not fit.
func (s *Service) parse(tool string, req mcp.CallToolRequest, v any) *mcp.CallToolResult {
	data, err := json.Marshal(req.GetArguments())
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		s.logger.Warn().
			Str("component", "mcp").
			Str("tool", tool).
			Err(err).
			Msg("invalid tool arguments")
		s.metrics.ObserveTool(tool, statusInvalidArgs)
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Service) ok(tool string, v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		s.metrics.ObserveTool(tool, statusToolError)
		return mcp.NewToolResultError("failed to encode result")
	}
	s.metrics.ObserveTool(tool, statusOK)
	return mcp.NewToolResultText(string(data))
}

// fail reports err to the caller as a tool error. Problems in a scenario are
// listed one per line so the model can fix them.
func (s *Service) fail(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	s.logger.Warn().
		Ctx(ctx).
		Str("component", "mcp").
		Str("tool", tool).
		Str("outcome", engine.Outcome(err)).
		Err(err).
		Msg("tool call failed")
	s.metrics.ObserveTool(tool, statusToolError)

	msg := err.Error()
	var cerr *scenario.ConfigurationError
	if errors.As(err, &cerr) {
		msg = "invalid scenario:"
		for _, p := range cerr.Problems {
			msg += "\n- " + p.Field + ": " + p.Message
		}
	}
	return mcp.NewToolResultError(msg)
}
