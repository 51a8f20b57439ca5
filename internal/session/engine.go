// Package session owns the interview lifecycle: one state machine per
// session, from creation through questioning to the final report. All
// transitions go through the Engine; callers never mutate a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronov/interviewer/internal/evaluate"
	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/persona"
	"github.com/avoronov/interviewer/internal/prompt"
	"github.com/avoronov/interviewer/internal/question"
)

var (
	// ErrSessionNotFound means no active session has the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidState means the operation is not legal in the session's
	// current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrConcurrentSubmission rejects a second answer while one is being
	// evaluated.
	ErrConcurrentSubmission = errors.New("an answer is already being evaluated")
	// ErrConfiguration marks a session that cannot be created as requested.
	ErrConfiguration = errors.New("invalid session configuration")
)

// QuestionSource hands out questions a session has not seen.
type QuestionSource interface {
	Next(ctx context.Context, category, difficulty string, excluded map[string]bool) (model.QuestionRecord, error)
}

// Evaluator scores answers and proposes follow-up probes.
type Evaluator interface {
	Evaluate(ctx context.Context, jobType string, q model.QuestionRecord, answer string, p model.Persona) (model.EvaluationResult, error)
	GenerateFollowup(ctx context.Context, p model.Persona, q model.QuestionRecord, answer string, total float64, weaknesses []string) string
}

// Reporter produces the final report for a finished session.
type Reporter interface {
	Generate(ctx context.Context, sess *model.Session) (*model.Report, error)
}

// Store persists sessions, finalized results, and reports. Results are
// append-only: an entry is written once its follow-up exchange (if any) is
// settled.
type Store interface {
	SaveSession(ctx context.Context, sess *model.Session) error
	AppendResult(ctx context.Context, sessionID string, r model.QAResult) error
	SaveReport(ctx context.Context, rep *model.Report) error
}

// CategoryLister exposes the categories the question bank can serve.
type CategoryLister interface {
	Categories(ctx context.Context) ([]string, error)
}

// AnswerOutcome is what the candidate sees after an answer is processed.
type AnswerOutcome struct {
	Result model.QAResult
	// Remark is the persona-phrased reaction shown to the candidate.
	Remark string
	// FollowupQuestion is non-empty when the session now waits for a
	// follow-up answer.
	FollowupQuestion string
}

// Engine runs all interview sessions in the process.
type Engine struct {
	questions  QuestionSource
	evaluator  Evaluator
	reporter   Reporter
	personas   *persona.Registry
	store      Store
	categories CategoryLister

	mu     sync.Mutex
	active map[string]*state
}

// state is one session plus its coordination flags. The evaluating flag
// makes answer evaluation single-flight without holding the lock across the
// completion call.
type state struct {
	mu         sync.Mutex
	sess       *model.Session
	persona    model.Persona
	evaluating bool
	// persisted counts the Results entries already appended to the store.
	persisted int
	report    *model.Report
}

// NewEngine wires a session engine. categories may be nil, in which case the
// requested category is not validated against the bank.
func NewEngine(q QuestionSource, e Evaluator, r Reporter, p *persona.Registry, store Store, categories CategoryLister) *Engine {
	return &Engine{
		questions:  q,
		evaluator:  e,
		reporter:   r,
		personas:   p,
		store:      store,
		categories: categories,
		active:     make(map[string]*state),
	}
}

// Create validates the configuration and registers a new session in the
// created state. An unknown persona or category is fatal here, never later.
func (e *Engine) Create(ctx context.Context, cfg model.InterviewConfig) (*model.Session, error) {
	if cfg.JobType == "" {
		return nil, fmt.Errorf("%w: job type is required", ErrConfiguration)
	}
	if cfg.MaxQuestions <= 0 {
		return nil, fmt.Errorf("%w: max questions must be positive", ErrConfiguration)
	}

	p, err := e.personas.Get(cfg.Persona)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if cfg.Category != "" && e.categories != nil {
		cats, err := e.categories.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		if !slices.Contains(cats, cfg.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrConfiguration, cfg.Category)
		}
	}

	sess := &model.Session{
		ID:        uuid.NewString(),
		Config:    cfg,
		Persona:   p.Name,
		Status:    model.StatusCreated,
		CreatedAt: time.Now(),
	}
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.mu.Lock()
	e.active[sess.ID] = &state{sess: sess, persona: p}
	e.mu.Unlock()

	slog.Info("session created", "session", sess.ID, "job_type", cfg.JobType, "persona", p.Name)
	return snapshot(sess), nil
}

// Start moves a created session to awaiting_answer and returns the opening
// remark together with the first question.
func (e *Engine) Start(ctx context.Context, id string) (string, model.QuestionRecord, error) {
	st, err := e.state(id)
	if err != nil {
		return "", model.QuestionRecord{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess.Status != model.StatusCreated {
		return "", model.QuestionRecord{}, fmt.Errorf("%w: cannot start a %s session", ErrInvalidState, st.sess.Status)
	}

	q, err := e.questions.Next(ctx, st.sess.Config.Category, st.sess.Config.Difficulty, st.sess.AskedIDs())
	if err != nil {
		return "", model.QuestionRecord{}, fmt.Errorf("first question: %w", err)
	}

	st.sess.Status = model.StatusAwaitingAnswer
	st.sess.CurrentQuestion = &q
	if err := e.store.SaveSession(ctx, st.sess); err != nil {
		slog.Error("persist session failed", "session", id, "error", err)
	}

	return prompt.Opening(st.persona, st.sess.Config.JobType), q, nil
}

// SubmitAnswer evaluates the candidate's answer to the current question.
// Evaluation is single-flight per session: a concurrent submission is
// rejected, not queued. When the evaluation service stays unavailable the
// answer is recorded unscored and the interview continues.
func (e *Engine) SubmitAnswer(ctx context.Context, id, answer string) (AnswerOutcome, error) {
	st, err := e.state(id)
	if err != nil {
		return AnswerOutcome{}, err
	}

	st.mu.Lock()
	if st.evaluating {
		st.mu.Unlock()
		return AnswerOutcome{}, ErrConcurrentSubmission
	}
	if st.sess.Status != model.StatusAwaitingAnswer || st.sess.CurrentQuestion == nil {
		status := st.sess.Status
		st.mu.Unlock()
		return AnswerOutcome{}, fmt.Errorf("%w: no answer expected in state %s", ErrInvalidState, status)
	}
	q := *st.sess.CurrentQuestion
	cfg := st.sess.Config
	p := st.persona
	st.evaluating = true
	st.sess.Status = model.StatusEvaluating
	st.mu.Unlock()

	// The completion calls run outside the lock so End and reads stay
	// responsive during a slow evaluation.
	eval, evalErr := e.evaluator.Evaluate(ctx, cfg.JobType, q, answer, p)
	followup := ""
	if evalErr == nil && eval.NeedsFollowup {
		followup = e.evaluator.GenerateFollowup(ctx, p, q, answer, eval.Total, eval.Weaknesses)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.evaluating = false

	if st.sess.Status.Terminal() {
		// The session ended while we were evaluating; the result is
		// discarded rather than appended after the report.
		return AnswerOutcome{}, fmt.Errorf("%w: session ended during evaluation", ErrInvalidState)
	}

	result := model.QAResult{
		Question:   q,
		Answer:     answer,
		AnsweredAt: time.Now(),
	}
	var remark string
	switch {
	case evalErr != nil:
		if !errors.Is(evalErr, evaluate.ErrUnavailable) {
			st.sess.Status = model.StatusAwaitingAnswer
			return AnswerOutcome{}, evalErr
		}
		result.Scored = false
		result.Evaluation = model.EvaluationResult{
			Feedback: "The evaluation service is unavailable; this answer was recorded without a score.",
		}
		remark = result.Evaluation.Feedback
		slog.Warn("answer recorded unscored", "session", id, "question", q.ID, "error", evalErr)
	default:
		result.Scored = true
		result.Evaluation = eval
		remark = persona.Feedback(p, eval.Total)
	}

	if followup != "" {
		result.FollowupQuestion = followup
		result.Evaluation.FollowupQuestion = followup
		st.sess.Status = model.StatusFollowupPending
	} else {
		st.sess.Status = model.StatusAdvancing
	}

	st.sess.CurrentQuestion = nil
	st.sess.Results = append(st.sess.Results, result)
	if followup == "" {
		e.flushResults(ctx, st)
	}
	if err := e.store.SaveSession(ctx, st.sess); err != nil {
		slog.Error("persist session failed", "session", id, "error", err)
	}

	return AnswerOutcome{Result: result, Remark: remark, FollowupQuestion: followup}, nil
}

// SubmitFollowupAnswer records the candidate's answer to a pending follow-up
// verbatim. Follow-up answers are never re-scored; the original evaluation
// stands.
func (e *Engine) SubmitFollowupAnswer(ctx context.Context, id, answer string) error {
	st, err := e.state(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess.Status != model.StatusFollowupPending {
		return fmt.Errorf("%w: no follow-up pending in state %s", ErrInvalidState, st.sess.Status)
	}

	last := &st.sess.Results[len(st.sess.Results)-1]
	last.FollowupAnswer = answer
	st.sess.Status = model.StatusAdvancing

	e.flushResults(ctx, st)
	if err := e.store.SaveSession(ctx, st.sess); err != nil {
		slog.Error("persist session failed", "session", id, "error", err)
	}
	return nil
}

// NextQuestion advances the session. In awaiting_answer it is idempotent and
// re-returns the current question. A pending follow-up is skipped: the entry
// finalizes without a follow-up answer. When the question budget is spent or
// the bank has nothing left, the session ends and done is true.
func (e *Engine) NextQuestion(ctx context.Context, id string) (model.QuestionRecord, bool, error) {
	st, err := e.state(id)
	if err != nil {
		return model.QuestionRecord{}, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.sess.Status {
	case model.StatusAwaitingAnswer:
		return *st.sess.CurrentQuestion, false, nil
	case model.StatusFollowupPending:
		st.sess.Status = model.StatusAdvancing
		e.flushResults(ctx, st)
	case model.StatusAdvancing:
	default:
		return model.QuestionRecord{}, false, fmt.Errorf("%w: cannot advance a %s session", ErrInvalidState, st.sess.Status)
	}

	if len(st.sess.Results) >= st.sess.Config.MaxQuestions {
		e.endLocked(ctx, st)
		return model.QuestionRecord{}, true, nil
	}

	q, err := e.questions.Next(ctx, st.sess.Config.Category, st.sess.Config.Difficulty, st.sess.AskedIDs())
	if err != nil {
		if errors.Is(err, question.ErrNotFound) {
			slog.Info("question bank exhausted, ending session", "session", id)
			e.endLocked(ctx, st)
			return model.QuestionRecord{}, true, nil
		}
		return model.QuestionRecord{}, false, fmt.Errorf("next question: %w", err)
	}

	st.sess.Status = model.StatusAwaitingAnswer
	st.sess.CurrentQuestion = &q
	if err := e.store.SaveSession(ctx, st.sess); err != nil {
		slog.Error("persist session failed", "session", id, "error", err)
	}
	return q, false, nil
}

// End finishes the session from any state and returns the report. Ending is
// idempotent: a finished session returns its cached report.
func (e *Engine) End(ctx context.Context, id string) (*model.Report, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sess.Status.Terminal() {
		return st.report, nil
	}
	e.endLocked(ctx, st)
	return st.report, nil
}

// endLocked finalizes the session and generates the report. Caller holds the
// state lock; an in-flight evaluation will observe the terminal status and
// discard its result.
func (e *Engine) endLocked(ctx context.Context, st *state) {
	st.sess.Status = model.StatusEnded
	st.sess.CurrentQuestion = nil
	e.flushResults(ctx, st)

	rep, err := e.reporter.Generate(ctx, st.sess)
	if err != nil {
		// The reporter degrades internally; an error here still leaves the
		// session ended so no further answers are accepted.
		slog.Error("report generation failed", "session", st.sess.ID, "error", err)
	} else {
		st.report = rep
		st.sess.Status = model.StatusReported
		if err := e.store.SaveReport(ctx, rep); err != nil {
			slog.Error("persist report failed", "session", st.sess.ID, "error", err)
		}
	}
	if err := e.store.SaveSession(ctx, st.sess); err != nil {
		slog.Error("persist session failed", "session", st.sess.ID, "error", err)
	}
	slog.Info("session finished", "session", st.sess.ID, "questions", len(st.sess.Results))
}

// Get returns a snapshot of the session.
func (e *Engine) Get(id string) (*model.Session, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshot(st.sess), nil
}

// Report returns the cached report of a finished session.
func (e *Engine) Report(id string) (*model.Report, error) {
	st, err := e.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.report == nil {
		return nil, fmt.Errorf("%w: session has no report yet", ErrInvalidState)
	}
	return st.report, nil
}

func (e *Engine) state(id string) (*state, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.active[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return st, nil
}

// flushResults appends finalized results to the store. Caller holds the
// state lock.
func (e *Engine) flushResults(ctx context.Context, st *state) {
	for ; st.persisted < len(st.sess.Results); st.persisted++ {
		r := st.sess.Results[st.persisted]
		if err := e.store.AppendResult(ctx, st.sess.ID, r); err != nil {
			slog.Error("persist result failed", "session", st.sess.ID, "question", r.Question.ID, "error", err)
		}
	}
}

func snapshot(s *model.Session) *model.Session {
	out := *s
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		out.CurrentQuestion = &q
	}
	out.Results = make([]model.QAResult, len(s.Results))
	copy(out.Results, s.Results)
	return &out
}
