// Package search defines the similarity-search contract used to retrieve
// candidate questions, plus a sqlite-backed implementation over the imported
// question bank. A real vector index can replace the implementation behind
// the same interface.
package search

import (
	"context"

	"github.com/avoronov/interviewer/internal/model"
)

// Filter narrows a query. Empty fields mean no filtering on that axis; Text
// biases ranking toward lexically similar questions.
type Filter struct {
	Category   string
	Difficulty string
	Text       string
}

// Candidate is one retrieval result with its relevance score.
type Candidate struct {
	Record    model.QuestionRecord
	Relevance float64
}

// Service is the abstract similarity-search backend.
type Service interface {
	Query(ctx context.Context, f Filter, k int) ([]Candidate, error)
}
