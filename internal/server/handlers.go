package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/scenario"
)

// HeaderCache reports whether an evaluation was served from the cache.
const HeaderCache = "X-Cache"

// statusClientClosedRequest is logged when the caller goes away mid-evaluation.
const statusClientClosedRequest = 499

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	Scenario scenario.Spec     `json:"scenario"`
	Factors  *factors.Document `json:"factors,omitempty"`
	// Runs defaults to the scenario's run count.
	Runs int `json:"runs,omitempty"`
	// Seed makes the result reproducible and cacheable.
	Seed *uint64 `json:"seed,omitempty"`
}

// ValidateResponse is the body returned by POST /v1/validate.
type ValidateResponse struct {
	Valid    bool               `json:"valid"`
	Problems []scenario.Problem `json:"problems,omitempty"`
}

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Problems  []scenario.Problem `json:"problems,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := scenario.New(req.Scenario)
	if err != nil {
		writeEvaluationError(w, r, err)
		return
	}

	table := s.opts.Table
	if req.Factors != nil {
		table, err = factors.FromDocument(*req.Factors, "inline")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_factors", err.Error(), nil)
			return
		}
	}

	runs := req.Runs
	if runs == 0 {
		runs = cfg.Runs()
	}
	if err := engine.CheckRuns(runs); err != nil {
		writeEvaluationError(w, r, err)
		return
	}
	if engine.Work(runs, cfg.Population()) > s.opts.MaxIndividuals {
		writeError(w, r, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("runs x population exceeds %d individuals", s.opts.MaxIndividuals), nil)
		return
	}

	result, hit, err := s.evaluator.Evaluate(ctx, cfg, table, runs, req.Seed)
	if err != nil {
		writeEvaluationError(w, r, err)
		return
	}

	if hit {
		w.Header().Set(HeaderCache, "hit")
	} else {
		w.Header().Set(HeaderCache, "miss")
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var spec scenario.Spec
	if !decodeBody(w, r, &spec) {
		return
	}

	_, err := scenario.New(spec)
	var cerr *scenario.ConfigurationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Problems: cerr.Problems})
	default:
		writeError(w, r, http.StatusInternalServerError, metrics.OutcomeError, err.Error(), nil)
	}
}

func (s *Server) handleFactors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Table.Document())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.opts.Version,
		"factor_table":   s.opts.Table.Name(),
		"factor_digest":  s.opts.Table.Digest(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// decodeBody reads a JSON body, rejecting unknown fields. It writes the error
// response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return false
	}
	return true
}

// writeEvaluationError maps evaluation errors onto status codes: invalid
// scenarios and run counts are client errors, a factor table that cannot
// serve the scenario is unprocessable.
func writeEvaluationError(w http.ResponseWriter, r *http.Request, err error) {
	code := engine.Outcome(err)
	var problems []scenario.Problem
	var cerr *scenario.ConfigurationError
	if errors.As(err, &cerr) {
		problems = cerr.Problems
	}

	status := http.StatusInternalServerError
	switch code {
	case metrics.OutcomeConfiguration, metrics.OutcomeInvalidRuns:
		status = http.StatusBadRequest
	case metrics.OutcomeMissingFactor:
		status = http.StatusUnprocessableEntity
	case metrics.OutcomeCanceled:
		status = http.StatusServiceUnavailable
		if errors.Is(err, context.Canceled) {
			status = statusClientClosedRequest
		}
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().
			Ctx(r.Context()).
			Str("component", "server").
			Str("operation", "evaluate").
			Err(err).
			Msg("evaluation failed")
	}
	writeError(w, r, status, code, err.Error(), problems)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, problems []scenario.Problem) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		Problems:  problems,
		RequestID: logging.TraceIDFromContext(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
