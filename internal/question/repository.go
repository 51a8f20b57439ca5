// Package question maintains bounded in-memory pools of not-yet-asked
// questions, refilled asynchronously from the similarity-search backend.
package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avoronov/interviewer/internal/model"
	"github.com/avoronov/interviewer/internal/search"
)

var (
	// ErrNotFound means no servable question remains for the scope.
	ErrNotFound = errors.New("no question available")
	// ErrRetrievalDegraded marks the search backend as unreachable; the
	// repository keeps serving from whatever pool remains.
	ErrRetrievalDegraded = errors.New("question retrieval degraded")
)

// Config sizes the pools.
type Config struct {
	// PreloadCount is the target pool size requested per retrieval.
	PreloadCount int
	// RefillThreshold triggers an async refill when a pool drops below it.
	RefillThreshold int
}

// DefaultConfig matches the documented pool sizing.
func DefaultConfig() Config {
	return Config{PreloadCount: 100, RefillThreshold: 20}
}

// Repository hands out questions from category-scoped pools. Pools are
// locked independently so unrelated categories never serialize; the served
// set is process-wide and prevents a question from re-entering any pool
// once handed to a session.
type Repository struct {
	search search.Service
	cfg    Config

	mu    sync.Mutex
	pools map[poolKey]*pool

	servedMu sync.Mutex
	served   map[string]bool
}

type poolKey struct {
	category   string
	difficulty string
}

type pool struct {
	mu        sync.Mutex
	records   []model.QuestionRecord
	refilling bool
	degraded  bool
}

// NewRepository creates a repository backed by the given search service.
func NewRepository(svc search.Service, cfg Config) *Repository {
	if cfg.PreloadCount <= 0 {
		cfg.PreloadCount = DefaultConfig().PreloadCount
	}
	if cfg.RefillThreshold <= 0 {
		cfg.RefillThreshold = DefaultConfig().RefillThreshold
	}
	return &Repository{
		search: svc,
		cfg:    cfg,
		pools:  make(map[poolKey]*pool),
		served: make(map[string]bool),
	}
}

// Next returns the next unexcluded question for the scope, in insertion
// order. It never blocks on a refill the current pool already satisfies; an
// empty pool with no refill in flight gets one synchronous retrieval attempt
// before ErrNotFound. When the backend is unreachable and the pool is
// exhausted, the error carries ErrRetrievalDegraded as well.
func (r *Repository) Next(ctx context.Context, category, difficulty string, excluded map[string]bool) (model.QuestionRecord, error) {
	p := r.pool(category, difficulty)

	p.mu.Lock()
	rec, ok := take(p, excluded)
	if !ok && !p.refilling {
		p.refilling = true
		p.mu.Unlock()
		r.refill(ctx, p, category, difficulty)
		p.mu.Lock()
		rec, ok = take(p, excluded)
	}
	if !ok {
		degraded := p.degraded
		p.mu.Unlock()
		if degraded {
			return model.QuestionRecord{}, fmt.Errorf("%w: %w", ErrNotFound, ErrRetrievalDegraded)
		}
		return model.QuestionRecord{}, ErrNotFound
	}

	if len(p.records) < r.cfg.RefillThreshold && !p.refilling {
		p.refilling = true
		go r.refill(context.WithoutCancel(ctx), p, category, difficulty)
	}
	p.mu.Unlock()

	r.servedMu.Lock()
	r.served[rec.ID] = true
	r.servedMu.Unlock()

	return rec, nil
}

// Degraded reports whether the last retrieval for the scope failed.
func (r *Repository) Degraded(category, difficulty string) bool {
	p := r.pool(category, difficulty)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// PoolSize returns the current pool size for the scope.
func (r *Repository) PoolSize(category, difficulty string) int {
	p := r.pool(category, difficulty)
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func (r *Repository) pool(category, difficulty string) *pool {
	key := poolKey{category: category, difficulty: difficulty}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[key]
	if !ok {
		p = &pool{}
		r.pools[key] = p
	}
	return p
}

// take removes and returns the first record not in excluded. Caller holds
// the pool lock.
func take(p *pool, excluded map[string]bool) (model.QuestionRecord, bool) {
	for i, rec := range p.records {
		if excluded[rec.ID] {
			continue
		}
		p.records = append(p.records[:i], p.records[i+1:]...)
		return rec, true
	}
	return model.QuestionRecord{}, false
}

// refill queries the backend and merges new questions into the pool,
// deduplicated against the pool and the process-wide served set. At most one
// refill per pool is in flight; the caller must have set p.refilling.
func (r *Repository) refill(ctx context.Context, p *pool, category, difficulty string) {
	defer func() {
		p.mu.Lock()
		p.refilling = false
		p.mu.Unlock()
	}()

	candidates, err := r.search.Query(ctx, search.Filter{Category: category, Difficulty: difficulty}, r.cfg.PreloadCount)
	if err != nil {
		slog.Warn("question refill failed, serving from cache",
			"category", category, "difficulty", difficulty, "error", err)
		p.mu.Lock()
		p.degraded = true
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.degraded = false

	existing := make(map[string]bool, len(p.records))
	for _, rec := range p.records {
		existing[rec.ID] = true
	}

	r.servedMu.Lock()
	added := 0
	for _, c := range candidates {
		if existing[c.Record.ID] || r.served[c.Record.ID] {
			continue
		}
		existing[c.Record.ID] = true
		p.records = append(p.records, c.Record)
		added++
	}
	r.servedMu.Unlock()

	slog.Debug("question pool refilled",
		"category", category, "difficulty", difficulty, "added", added, "size", len(p.records))
}
