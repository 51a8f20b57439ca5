// Package evaluate scores candidate answers through the completion service
// and decides pass and follow-up outcomes.
package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/avoronov/interviewer/internal/completion"
	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/prompt"
)

// ErrUnavailable means the evaluation could not be produced after retries.
// The session records the answer unscored and continues.
var ErrUnavailable = errors.New("evaluation unavailable")

// Scoring weights and thresholds. These are fixed product rules, not
// configuration.
const (
	WeightTechnical = 0.5
	WeightClarity   = 0.2
	WeightDepth     = 0.3

	PassThreshold     = 6.0
	FollowupThreshold = 8.0
)

// Total computes the weighted total rounded to one decimal.
func Total(technical, clarity, depth float64) float64 {
	t := WeightTechnical*technical + WeightClarity*clarity + WeightDepth*depth
	return math.Round(t*10) / 10
}

// NeedsFollowup reports whether the total falls in the probing band. Both
// ends are inclusive.
func NeedsFollowup(total float64) bool {
	return total >= PassThreshold && total <= FollowupThreshold
}

// Engine evaluates answers with a completion client behind a retry policy.
type Engine struct {
	client completion.Client
	retry  completion.RetryPolicy
}

// NewEngine creates an evaluation engine.
func NewEngine(client completion.Client, retry completion.RetryPolicy) *Engine {
	return &Engine{client: client, retry: retry}
}

// rawScores is the wire shape the scoring prompt asks for.
type rawScores struct {
	TechnicalAccuracy float64  `json:"technical_accuracy"`
	Clarity           float64  `json:"clarity"`
	DepthBreadth      float64  `json:"depth_breadth"`
	Feedback          string   `json:"feedback"`
	Weaknesses        []string `json:"weaknesses"`
}

// Evaluate scores one answer. A failure after retries, or a response that
// does not parse, yields ErrUnavailable; the caller decides how to degrade.
func (e *Engine) Evaluate(ctx context.Context, jobType string, q model.QuestionRecord, answer string, p model.Persona) (model.EvaluationResult, error) {
	req := completion.Request{
		Prompt:      prompt.Evaluation(jobType, q, answer),
		Directives:  p.Directives,
		Temperature: 0.3,
		JSONMode:    true,
	}

	raw, err := e.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return e.client.Complete(ctx, req)
	})
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var scores rawScores
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		slog.Warn("evaluation response did not parse", "question", q.ID, "error", err)
		return model.EvaluationResult{}, fmt.Errorf("%w: parse response: %w", ErrUnavailable, err)
	}

	res := model.EvaluationResult{
		TechnicalAccuracy: clamp(scores.TechnicalAccuracy),
		Clarity:           clamp(scores.Clarity),
		DepthBreadth:      clamp(scores.DepthBreadth),
		Feedback:          strings.TrimSpace(scores.Feedback),
		Weaknesses:        scores.Weaknesses,
	}
	res.Total = Total(res.TechnicalAccuracy, res.Clarity, res.DepthBreadth)
	res.Pass = res.Total >= PassThreshold
	res.NeedsFollowup = NeedsFollowup(res.Total)
	return res, nil
}

// GenerateFollowup asks for one probing question. Follow-up generation is
// best effort: any failure returns an empty string and the session advances
// without probing.
func (e *Engine) GenerateFollowup(ctx context.Context, p model.Persona, q model.QuestionRecord, answer string, total float64, weaknesses []string) string {
	req := completion.Request{
		Prompt:      prompt.Followup(p, q, answer, total, weaknesses),
		Directives:  p.Directives,
		Temperature: 0.7,
	}

	raw, err := e.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return e.client.Complete(ctx, req)
	})
	if err != nil {
		slog.Warn("follow-up generation failed, advancing without probe",
			"question", q.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
