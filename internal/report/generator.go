// Package report derives the final interview report from a session's
// recorded results. The numbers are computed locally; only the qualitative
// synthesis (weak areas, strong areas, suggestions) comes from the
// completion service, with a numeric fallback when it is unreachable.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/avoronov/interviewer/internal/completion"
	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/prompt"
)

// QualifiedThreshold is the correct-rate at or above which a candidate is
// marked qualified.
const QualifiedThreshold = 0.6

// Generator builds reports. Generate never fails: a synthesis outage
// produces a degraded report, not an error.
type Generator struct {
	client completion.Client
	retry  completion.RetryPolicy
}

// NewGenerator creates a report generator.
func NewGenerator(client completion.Client, retry completion.RetryPolicy) *Generator {
	return &Generator{client: client, retry: retry}
}

type synthesis struct {
	WeakAreas   []string `json:"weak_areas"`
	StrongAreas []string `json:"strong_areas"`
	Suggestions []string `json:"suggestions"`
}

// Generate computes the report for a finished session. Unscored entries
// count as attempted and failing but are excluded from every average.
func (g *Generator) Generate(ctx context.Context, sess *model.Session) (*model.Report, error) {
	rep := &model.Report{
		SessionID:   sess.ID,
		JobType:     sess.Config.JobType,
		Persona:     sess.Persona,
		GeneratedAt: time.Now(),
	}

	var sumTotal, sumTech, sumClarity, sumDepth float64
	scored := 0
	for _, r := range sess.Results {
		rep.Attempted++
		detail := model.QuestionDetail{
			QuestionID:  r.Question.ID,
			Question:    r.Question.Text,
			Category:    r.Question.Category,
			Total:       r.Evaluation.Total,
			Pass:        r.Scored && r.Evaluation.Pass,
			Scored:      r.Scored,
			Feedback:    r.Evaluation.Feedback,
			HadFollowup: r.FollowupQuestion != "",
		}
		rep.Details = append(rep.Details, detail)

		if !r.Scored {
			rep.Unscored++
			continue
		}
		scored++
		sumTotal += r.Evaluation.Total
		sumTech += r.Evaluation.TechnicalAccuracy
		sumClarity += r.Evaluation.Clarity
		sumDepth += r.Evaluation.DepthBreadth
		if r.Evaluation.Pass {
			rep.Passed++
		}
	}

	if scored > 0 {
		rep.OverallScore = round1(sumTotal / float64(scored))
		rep.AvgTechnicalAccuracy = round1(sumTech / float64(scored))
		rep.AvgClarity = round1(sumClarity / float64(scored))
		rep.AvgDepthBreadth = round1(sumDepth / float64(scored))
	}
	if rep.Attempted > 0 {
		rep.CorrectRate = float64(rep.Passed) / float64(rep.Attempted)
	}
	rep.Qualified = rep.CorrectRate >= QualifiedThreshold

	g.synthesize(ctx, sess, rep, scored)
	return rep, nil
}

// synthesize fills the qualitative sections, falling back to the numeric
// summary when the completion service cannot help.
func (g *Generator) synthesize(ctx context.Context, sess *model.Session, rep *model.Report, scored int) {
	if scored == 0 {
		g.fallback(rep)
		return
	}

	stats := prompt.SynthesisStats{
		TotalQuestions: rep.Attempted,
		CorrectRate:    rep.CorrectRate,
		AvgTechnical:   rep.AvgTechnicalAccuracy,
		AvgClarity:     rep.AvgClarity,
		AvgDepth:       rep.AvgDepthBreadth,
	}
	req := completion.Request{
		Prompt:      prompt.ReportSynthesis(sess.Config.JobType, sess.Config.Difficulty, stats, detailLines(sess)),
		Temperature: 0.5,
		JSONMode:    true,
	}

	raw, err := g.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return g.client.Complete(ctx, req)
	})
	if err != nil {
		slog.Warn("report synthesis unavailable, using numeric fallback", "session", sess.ID, "error", err)
		g.fallback(rep)
		return
	}

	var syn synthesis
	if err := json.Unmarshal([]byte(raw), &syn); err != nil {
		slog.Warn("report synthesis did not parse, using numeric fallback", "session", sess.ID, "error", err)
		g.fallback(rep)
		return
	}
	rep.WeakAreas = syn.WeakAreas
	rep.StrongAreas = syn.StrongAreas
	rep.Suggestions = syn.Suggestions
}

// fallback derives weak and strong areas from the dimension averages alone.
func (g *Generator) fallback(rep *model.Report) {
	rep.SynthesisDegraded = true

	dims := []struct {
		name string
		avg  float64
	}{
		{"technical accuracy", rep.AvgTechnicalAccuracy},
		{"clarity of explanation", rep.AvgClarity},
		{"depth and breadth of knowledge", rep.AvgDepthBreadth},
	}
	low, high := 0, 0
	for i, d := range dims {
		if d.avg < dims[low].avg {
			low = i
		}
		if d.avg > dims[high].avg {
			high = i
		}
	}

	rep.WeakAreas = []string{dims[low].name}
	if low != high && dims[high].avg > 0 {
		rep.StrongAreas = []string{dims[high].name}
	}
	rep.Suggestions = []string{
		fmt.Sprintf("Focus revision on %s, the weakest dimension this session.", dims[low].name),
		"Review the per-question feedback below and redo the failed questions.",
	}
	for _, d := range rep.Details {
		if !d.Pass {
			rep.Suggestions = append(rep.Suggestions,
				fmt.Sprintf("Revisit the %s topics covered by the missed questions.", d.Category))
			break
		}
	}
}

// detailLines renders the per-question history for the synthesis prompt.
func detailLines(sess *model.Session) string {
	var sb strings.Builder
	for i, r := range sess.Results {
		if !r.Scored {
			fmt.Fprintf(&sb, "%d. [%s] %s (not scored)\n", i+1, r.Question.Category, r.Question.Text)
			continue
		}
		verdict := "failed"
		if r.Evaluation.Pass {
			verdict = "passed"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s: %.1f/10 (%s)", i+1, r.Question.Category, r.Question.Text, r.Evaluation.Total, verdict)
		if len(r.Evaluation.Weaknesses) > 0 {
			fmt.Fprintf(&sb, " weaknesses: %s", strings.Join(r.Evaluation.Weaknesses, "; "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
