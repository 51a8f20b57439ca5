package model

import "time"

// SessionStatus represents the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusCreated         SessionStatus = "created"
	StatusStarted         SessionStatus = "started"
	StatusAwaitingAnswer  SessionStatus = "awaiting_answer"
	StatusEvaluating      SessionStatus = "evaluating"
	StatusFollowupPending SessionStatus = "followup_pending"
	StatusAdvancing       SessionStatus = "advancing"
	StatusEnded           SessionStatus = "ended"
	StatusReported        SessionStatus = "reported"
)

var statusRank = map[SessionStatus]int{
	StatusCreated:         0,
	StatusStarted:         1,
	StatusAwaitingAnswer:  2,
	StatusEvaluating:      3,
	StatusFollowupPending: 4,
	StatusAdvancing:       5,
	StatusEnded:           6,
	StatusReported:        7,
}

// Rank returns the ordinal position of a status. The mid-cycle states
// (awaiting_answer through advancing) repeat per question, so Rank is only
// meaningful for detecting regression into created/started or out of
// ended/reported.
func (s SessionStatus) Rank() int {
	return statusRank[s]
}

// Terminal reports whether the session can accept no further answers.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusReported
}

// InterviewConfig holds the parameters a session is created with.
type InterviewConfig struct {
	JobType      string `json:"job_type"`
	Difficulty   string `json:"difficulty"`
	MaxQuestions int    `json:"max_questions"`
	Persona      string `json:"persona,omitempty"`
	Category     string `json:"category,omitempty"`
}

// QuestionRecord is a question retrieved from the bank. Immutable once
// retrieved; Relevance comes from the similarity search and is used for
// ranking only, never persisted as truth.
type QuestionRecord struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Category        string   `json:"category"`
	Difficulty      string   `json:"difficulty"`
	Keywords        []string `json:"keywords,omitempty"`
	ReferenceAnswer string   `json:"reference_answer,omitempty"`
	Relevance       float64  `json:"relevance,omitempty"`
}

// EvaluationResult holds the scores for one answer. Dimension scores are in
// [0,10]; Total is the weighted sum rounded to one decimal.
type EvaluationResult struct {
	TechnicalAccuracy float64  `json:"technical_accuracy"`
	Clarity           float64  `json:"clarity"`
	DepthBreadth      float64  `json:"depth_breadth"`
	Total             float64  `json:"total"`
	Pass              bool     `json:"pass"`
	NeedsFollowup     bool     `json:"needs_followup"`
	Feedback          string   `json:"feedback"`
	Weaknesses        []string `json:"weaknesses,omitempty"`
	FollowupQuestion  string   `json:"followup_question,omitempty"`
}

// QAResult is one question/answer/evaluation triple in a session's history.
// Appended exactly once per question and never mutated afterward, except
// that a pending follow-up answer is recorded on it before the session
// advances. Scored is false when the evaluation failed after retries; such
// entries carry zero scores and explanatory feedback.
type QAResult struct {
	Question         QuestionRecord   `json:"question"`
	Answer           string           `json:"answer"`
	FollowupQuestion string           `json:"followup_question,omitempty"`
	FollowupAnswer   string           `json:"followup_answer,omitempty"`
	Evaluation       EvaluationResult `json:"evaluation"`
	Scored           bool             `json:"scored"`
	AnsweredAt       time.Time        `json:"answered_at"`
}

// Session is one interview. Owned exclusively by the session engine for its
// lifetime; len(Results) never exceeds Config.MaxQuestions.
type Session struct {
	ID              string          `json:"id"`
	Config          InterviewConfig `json:"config"`
	Persona         string          `json:"persona"`
	Status          SessionStatus   `json:"status"`
	CurrentQuestion *QuestionRecord `json:"current_question,omitempty"`
	Results         []QAResult      `json:"results"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AskedIDs returns the ids of all questions already asked in this session,
// including the current one.
func (s *Session) AskedIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Results)+1)
	for _, r := range s.Results {
		ids[r.Question.ID] = true
	}
	if s.CurrentQuestion != nil {
		ids[s.CurrentQuestion.ID] = true
	}
	return ids
}

// QuestionDetail is the per-question breakdown included in a report.
type QuestionDetail struct {
	QuestionID  string  `json:"question_id"`
	Question    string  `json:"question"`
	Category    string  `json:"category"`
	Total       float64 `json:"total"`
	Pass        bool    `json:"pass"`
	Scored      bool    `json:"scored"`
	Feedback    string  `json:"feedback"`
	HadFollowup bool    `json:"had_followup"`
}

// Report is derived entirely from a session's results. Computed once at the
// end of a session and cached; SynthesisDegraded marks a report whose weak/
// strong areas came from the numeric fallback instead of the completion
// service.
type Report struct {
	SessionID            string           `json:"session_id"`
	JobType              string           `json:"job_type"`
	Persona              string           `json:"persona"`
	OverallScore         float64          `json:"overall_score"`
	AvgTechnicalAccuracy float64          `json:"avg_technical_accuracy"`
	AvgClarity           float64          `json:"avg_clarity"`
	AvgDepthBreadth      float64          `json:"avg_depth_breadth"`
	Attempted            int              `json:"attempted"`
	Passed               int              `json:"passed"`
	Unscored             int              `json:"unscored"`
	CorrectRate          float64          `json:"correct_rate"`
	Qualified            bool             `json:"qualified"`
	WeakAreas            []string         `json:"weak_areas"`
	StrongAreas          []string         `json:"strong_areas"`
	Suggestions          []string         `json:"suggestions"`
	Details              []QuestionDetail `json:"details"`
	SynthesisDegraded    bool             `json:"synthesis_degraded,omitempty"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// FeedbackBands holds a persona's canned phrasing per score band.
type FeedbackBands struct {
	Low  string `yaml:"low" json:"low"`
	Mid  string `yaml:"mid" json:"mid"`
	High string `yaml:"high" json:"high"`
}

// Persona is a named tone/strictness profile. Read-only after load, shared
// by all sessions that reference it; it parameterizes phrasing only and
// never alters scoring arithmetic.
type Persona struct {
	Name          string        `yaml:"name" json:"name"`
	Description   string        `yaml:"description" json:"description"`
	Opening       string        `yaml:"opening" json:"opening"`
	FollowupStyle string        `yaml:"followup_style" json:"followup_style"`
	Directives    []string      `yaml:"directives" json:"directives"`
	Feedback      FeedbackBands `yaml:"feedback" json:"feedback"`
}
