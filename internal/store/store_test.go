package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avoronov/interviewer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) *model.Session {
	return &model.Session{
		ID: id,
		Config: model.InterviewConfig{
			JobType: "backend engineer", Difficulty: "medium", Category: "databases",
			MaxQuestions: 5, Persona: "strict",
		},
		Persona:   "strict",
		Status:    model.StatusCreated,
		CreatedAt: time.Now().Truncate(time.Second),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := testSession("s1")
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Saving again with a new status updates, not duplicates.
	sess.Status = model.StatusAwaitingAnswer
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession update: %v", err)
	}

	got, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Status != model.StatusAwaitingAnswer {
		t.Errorf("status = %s, want %s", got.Status, model.StatusAwaitingAnswer)
	}
	if got.Config.JobType != "backend engineer" || got.Config.MaxQuestions != 5 {
		t.Errorf("config not restored: %+v", got.Config)
	}
	if got.Persona != "strict" {
		t.Errorf("persona = %q", got.Persona)
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendAndLoadResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	for i, total := range []float64{7.5, 4.0} {
		r := model.QAResult{
			Question: model.QuestionRecord{ID: "q" + string(rune('1'+i)), Text: "question", Category: "databases"},
			Answer:   "an answer",
			Scored:   true,
			Evaluation: model.EvaluationResult{
				Total: total, Pass: total >= 6.0, Feedback: "ok",
			},
			AnsweredAt: time.Now(),
		}
		if err := s.AppendResult(ctx, "s1", r); err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}

	got, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got.Results))
	}
	if got.Results[0].Evaluation.Total != 7.5 || got.Results[1].Evaluation.Total != 4.0 {
		t.Errorf("results out of order or corrupted: %+v", got.Results)
	}
	if !got.Results[0].Evaluation.Pass || got.Results[1].Evaluation.Pass {
		t.Errorf("pass flags lost in round trip")
	}
}

func TestReportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rep := &model.Report{
		SessionID:    "s1",
		JobType:      "backend engineer",
		OverallScore: 7.2,
		Attempted:    5,
		Passed:       4,
		CorrectRate:  0.8,
		Qualified:    true,
		WeakAreas:    []string{"indexing"},
		GeneratedAt:  time.Now(),
	}
	if err := s.SaveReport(ctx, rep); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.GetReport(ctx, "s1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.OverallScore != 7.2 || !got.Qualified || len(got.WeakAreas) != 1 {
		t.Errorf("report corrupted in round trip: %+v", got)
	}

	if _, err := s.GetReport(ctx, "s2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQuestionBank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty bank, got %d", n)
	}

	q := model.QuestionRecord{
		ID: "q1", Text: "What is a goroutine?", Category: "concurrency",
		Difficulty: "easy", Keywords: []string{"goroutine", "scheduler"},
		ReferenceAnswer: "a lightweight thread managed by the runtime",
	}
	if err := s.InsertQuestion(ctx, q); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	// Re-inserting the same id replaces, not duplicates.
	q.Text = "What exactly is a goroutine?"
	if err := s.InsertQuestion(ctx, q); err != nil {
		t.Fatalf("InsertQuestion replace: %v", err)
	}

	n, err = s.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 question after replace, got %d", n)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.ImportedFileHash(ctx, "questions.json")
	if err != nil {
		t.Fatalf("ImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Fatalf("expected empty hash for unseen file, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "questions.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	if err := s.SetImportedFileHash(ctx, "questions.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}

	hash, err = s.ImportedFileHash(ctx, "questions.json")
	if err != nil {
		t.Fatalf("ImportedFileHash: %v", err)
	}
	if hash != "def456" {
		t.Errorf("hash = %q, want def456", hash)
	}
}
