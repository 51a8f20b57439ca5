// Package store persists sessions, results, reports, and the question bank
// in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/avoronov/interviewer/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only consumers such as the
// question bank search.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		category TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		keywords TEXT NOT NULL DEFAULT '',
		reference_answer TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		persona TEXT NOT NULL DEFAULT '',
		max_questions INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS qa_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		data TEXT NOT NULL,
		answered_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession upserts the session row. Results are kept separately in
// qa_results and are not written here.
func (s *Store) SaveSession(ctx context.Context, sess *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, job_type, difficulty, category, persona, max_questions, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		sess.ID, sess.Config.JobType, sess.Config.Difficulty, sess.Config.Category,
		sess.Persona, sess.Config.MaxQuestions, string(sess.Status), sess.CreatedAt,
	)
	return err
}

// LoadSession reads a session row and its recorded results.
func (s *Store) LoadSession(ctx context.Context, id string) (*model.Session, error) {
	sess := &model.Session{ID: id}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT job_type, difficulty, category, persona, max_questions, status, created_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.Config.JobType, &sess.Config.Difficulty, &sess.Config.Category,
		&sess.Persona, &sess.Config.MaxQuestions, &status, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	sess.Status = model.SessionStatus(status)
	sess.Config.Persona = sess.Persona

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM qa_results WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r model.QAResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		sess.Results = append(sess.Results, r)
	}
	return sess, rows.Err()
}

// AppendResult writes one finalized question/answer record.
func (s *Store) AppendResult(ctx context.Context, sessionID string, r model.QAResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO qa_results (session_id, question_id, data, answered_at) VALUES (?, ?, ?, ?)`,
		sessionID, r.Question.ID, string(data), r.AnsweredAt,
	)
	return err
}

// SaveReport stores the final report as a JSON document.
func (s *Store) SaveReport(ctx context.Context, rep *model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (session_id, data, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, generated_at = excluded.generated_at`,
		rep.SessionID, string(data), rep.GeneratedAt,
	)
	return err
}

// GetReport loads a stored report.
func (s *Store) GetReport(ctx context.Context, sessionID string) (*model.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM reports WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report for session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	var rep model.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}

// InsertQuestion adds a question to the bank, replacing any previous version
// with the same id.
func (s *Store) InsertQuestion(ctx context.Context, q model.QuestionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO questions (id, text, category, difficulty, keywords, reference_answer)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Text, q.Category, q.Difficulty, strings.Join(q.Keywords, ","), q.ReferenceAnswer,
	)
	return err
}

// QuestionCount returns the bank size.
func (s *Store) QuestionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

// ImportedFileHash returns the recorded hash for path, or "" when the file
// was never imported.
func (s *Store) ImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records that path was imported at the given hash.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO imported_files (path, hash) VALUES (?, ?)`,
		path, hash,
	)
	return err
}
