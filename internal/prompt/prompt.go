// Package prompt builds the prompts sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/avoronov/interviewer/internal/model"
)

// Evaluation builds the scoring prompt for one answer. The response must be
// a JSON object with the three dimension scores, feedback, and weaknesses.
func Evaluation(jobType string, q model.QuestionRecord, answer string) string {
	var sb strings.Builder
	sb.WriteString("You are a senior " + jobType + " interviewer evaluating a candidate's answer.\n\n")
	sb.WriteString("QUESTION (category: " + q.Category + ", difficulty: " + q.Difficulty + "):\n")
	sb.WriteString(q.Text + "\n\n")
	if q.ReferenceAnswer != "" {
		sb.WriteString("REFERENCE ANSWER (not shown to the candidate):\n" + q.ReferenceAnswer + "\n\n")
	}
	if len(q.Keywords) > 0 {
		sb.WriteString("KEY CONCEPTS TO LOOK FOR: " + strings.Join(q.Keywords, ", ") + "\n\n")
	}
	sb.WriteString("CANDIDATE ANSWER:\n" + answer + "\n\n")
	sb.WriteString("Score the answer on three dimensions, each from 0 to 10:\n")
	sb.WriteString("1. technical_accuracy: correctness, absence of wrong concepts\n")
	sb.WriteString("2. clarity: logical structure, precise wording\n")
	sb.WriteString("3. depth_breadth: grasp of fundamentals, related topics, extensions\n\n")
	sb.WriteString("Also give brief feedback and list up to three concrete weaknesses.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"technical_accuracy": <0-10>, "clarity": <0-10>, "depth_breadth": <0-10>, "feedback": "<brief feedback>", "weaknesses": ["<weakness>", ...]}`)
	sb.WriteString("\n")
	return sb.String()
}

// Followup builds the prompt for a single targeted probing question aimed at
// the weakest aspect of the answer.
func Followup(p model.Persona, q model.QuestionRecord, answer string, total float64, weaknesses []string) string {
	weak := "no specific weakness identified"
	if len(weaknesses) > 0 {
		weak = strings.Join(weaknesses, "; ")
	}
	style := p.FollowupStyle
	if style == "" {
		style = "a targeted question probing the candidate's understanding"
	}

	var sb strings.Builder
	sb.WriteString("You are an interviewer with the \"" + p.Name + "\" persona.\n\n")
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	sb.WriteString("CANDIDATE ANSWER: " + answer + "\n\n")
	sb.WriteString(fmt.Sprintf("EVALUATION: total score %.1f/10, main weaknesses: %s\n\n", total, weak))
	sb.WriteString("Generate exactly one follow-up question: " + style + ".\n")
	sb.WriteString("It must target the weakest aspect of the answer, be a single sentence, ")
	sb.WriteString("and match the persona's tone.\n")
	sb.WriteString("Return only the question text, nothing else.\n")
	return sb.String()
}

// SynthesisStats carries the numeric aggregates for the report prompt.
type SynthesisStats struct {
	TotalQuestions int
	CorrectRate    float64
	AvgTechnical   float64
	AvgClarity     float64
	AvgDepth       float64
}

// ReportSynthesis builds the final-report prompt. The response must be a
// JSON object with weak_areas, strong_areas, and suggestions.
func ReportSynthesis(jobType, difficulty string, stats SynthesisStats, details string) string {
	var sb strings.Builder
	sb.WriteString("You are a senior " + jobType + " interviewer writing the final interview summary.\n\n")
	sb.WriteString("INTERVIEW: position " + jobType + ", difficulty " + difficulty + "\n")
	sb.WriteString(fmt.Sprintf("Questions: %d, correct rate: %.0f%%\n", stats.TotalQuestions, stats.CorrectRate*100))
	sb.WriteString(fmt.Sprintf("Average scores: technical accuracy %.1f/10, clarity %.1f/10, depth/breadth %.1f/10\n\n",
		stats.AvgTechnical, stats.AvgClarity, stats.AvgDepth))
	sb.WriteString("ANSWER DETAILS:\n" + details + "\n\n")
	sb.WriteString("Produce:\n")
	sb.WriteString("1. weak_areas: topics where the candidate underperformed (2-5 items)\n")
	sb.WriteString("2. strong_areas: topics where the candidate did well (1-3 items)\n")
	sb.WriteString("3. suggestions: concrete, actionable study advice (3-5 items)\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"weak_areas": ["..."], "strong_areas": ["..."], "suggestions": ["..."]}`)
	sb.WriteString("\n")
	return sb.String()
}

// Opening returns the session opening remark. Personas usually carry a
// static opening; this is the fallback when they do not.
func Opening(p model.Persona, jobType string) string {
	if p.Opening != "" {
		return p.Opening
	}
	return fmt.Sprintf("Welcome. I will be your interviewer today for the %s position. Let's begin.", jobType)
}
