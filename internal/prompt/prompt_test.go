package prompt

import (
	"strings"
	"testing"

	"github.com/avoronov/interviewer/internal/model"
)

func TestEvaluation(t *testing.T) {
	q := model.QuestionRecord{
		ID:              "q1",
		Text:            "Explain how goroutine scheduling works.",
		Category:        "concurrency",
		Difficulty:      "medium",
		Keywords:        []string{"GMP", "work stealing"},
		ReferenceAnswer: "The runtime multiplexes goroutines onto OS threads.",
	}

	p := Evaluation("backend engineer", q, "The runtime schedules them.")
	for _, want := range []string{
		q.Text,
		q.ReferenceAnswer,
		"GMP, work stealing",
		"The runtime schedules them.",
		"technical_accuracy",
		"depth_breadth",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("evaluation prompt missing %q", want)
		}
	}

	t.Run("omits empty sections", func(t *testing.T) {
		bare := model.QuestionRecord{ID: "q2", Text: "What is a mutex?", Category: "concurrency", Difficulty: "easy"}
		p := Evaluation("backend engineer", bare, "a lock")
		if strings.Contains(p, "REFERENCE ANSWER") {
			t.Error("prompt should not contain reference answer section when empty")
		}
		if strings.Contains(p, "KEY CONCEPTS") {
			t.Error("prompt should not contain keywords section when empty")
		}
	})
}

func TestFollowup(t *testing.T) {
	persona := model.Persona{Name: "socratic", FollowupStyle: "a question that leads the candidate to the gap"}
	q := model.QuestionRecord{Text: "Explain TCP slow start."}

	p := Followup(persona, q, "It ramps up slowly.", 7.0, []string{"no congestion window detail"})
	for _, want := range []string{"socratic", "7.0/10", "no congestion window detail", "leads the candidate to the gap"} {
		if !strings.Contains(p, want) {
			t.Errorf("followup prompt missing %q", want)
		}
	}

	t.Run("defaults when persona has no style", func(t *testing.T) {
		p := Followup(model.Persona{Name: "plain"}, q, "answer", 6.5, nil)
		if !strings.Contains(p, "no specific weakness identified") {
			t.Error("expected weakness placeholder")
		}
		if !strings.Contains(p, "targeted question probing") {
			t.Error("expected default followup style")
		}
	})
}

func TestReportSynthesis(t *testing.T) {
	stats := SynthesisStats{TotalQuestions: 5, CorrectRate: 0.6, AvgTechnical: 6.5, AvgClarity: 7.0, AvgDepth: 5.5}
	p := ReportSynthesis("backend engineer", "medium", stats, "Q1: 7.0/10")
	for _, want := range []string{"correct rate: 60%", "6.5/10", "weak_areas", "strong_areas", "suggestions", "Q1: 7.0/10"} {
		if !strings.Contains(p, want) {
			t.Errorf("report prompt missing %q", want)
		}
	}
}

func TestOpening(t *testing.T) {
	withOpening := model.Persona{Name: "strict", Opening: "Sit down. We start now."}
	if got := Opening(withOpening, "backend engineer"); got != "Sit down. We start now." {
		t.Errorf("expected persona opening, got %q", got)
	}

	got := Opening(model.Persona{Name: "bare"}, "backend engineer")
	if !strings.Contains(got, "backend engineer") {
		t.Errorf("fallback opening should mention the job type, got %q", got)
	}
}
