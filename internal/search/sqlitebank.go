package search

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/avoronov/interviewer/internal/model"
)

// SQLiteBank serves the imported question bank as a similarity-search
// backend. Relevance is a keyword-overlap heuristic over the filter text;
// with no text filter, bank order is preserved and relevance decays with
// position.
type SQLiteBank struct {
	db *sql.DB
}

// NewSQLiteBank wraps an open database containing the questions table.
func NewSQLiteBank(db *sql.DB) *SQLiteBank {
	return &SQLiteBank{db: db}
}

// Query returns up to k questions matching the filter, best first.
func (b *SQLiteBank) Query(ctx context.Context, f Filter, k int) ([]Candidate, error) {
	query := `SELECT id, text, category, difficulty, keywords, reference_answer FROM questions WHERE 1=1`
	var args []any
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, f.Difficulty)
	}
	query += ` ORDER BY rowid`

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.QuestionRecord
	for rows.Next() {
		var rec model.QuestionRecord
		var keywords string
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Category, &rec.Difficulty, &keywords, &rec.ReferenceAnswer); err != nil {
			return nil, err
		}
		if keywords != "" {
			rec.Keywords = strings.Split(keywords, ",")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	candidates := rank(records, f.Text)
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Categories returns the distinct categories present in the bank, sorted.
func (b *SQLiteBank) Categories(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT category FROM questions ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func rank(records []model.QuestionRecord, text string) []Candidate {
	terms := tokenize(text)
	candidates := make([]Candidate, 0, len(records))

	if len(terms) == 0 {
		// No text filter: keep bank order, relevance decays with position.
		n := len(records)
		for i, rec := range records {
			c := Candidate{Record: rec, Relevance: 1.0 - float64(i)/float64(n)}
			c.Record.Relevance = c.Relevance
			candidates = append(candidates, c)
		}
		return candidates
	}

	for _, rec := range records {
		doc := tokenize(rec.Text + " " + strings.Join(rec.Keywords, " "))
		c := Candidate{Record: rec, Relevance: overlap(terms, doc)}
		c.Record.Relevance = c.Relevance
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	return candidates
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?()\"'")
		if len(f) > 2 {
			tokens[f] = true
		}
	}
	return tokens
}

// overlap is the fraction of query terms present in the document.
func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for t := range query {
		if doc[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
