// Package store persists per-document analysis results in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
)

// DBName is the database file created inside the persistence directory.
const DBName = "blobify.db"

// Document is the last recorded analysis of one file.
type Document struct {
	Path        string
	Hash        string
	AnalyzedAt  time.Time
	Diagnostics []domain.Diagnostic
	Contexts    []domain.Context
}

// Store handles persistence of analysis results using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates blobify.db in dir, creating dir if needed, and
// makes sure the schema exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			hash TEXT,
			analyzed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			path TEXT,
			seq INTEGER,
			line INTEGER,
			severity TEXT,
			code TEXT,
			message TEXT,
			PRIMARY KEY (path, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS contexts (
			path TEXT,
			name TEXT,
			parents TEXT,
			line INTEGER,
			PRIMARY KEY (path, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_path ON diagnostics(path);`,
		`CREATE INDEX IF NOT EXISTS idx_contexts_path ON contexts(path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec schema query: %w", err)
		}
	}
	return nil
}

// SaveDocument records doc, replacing everything previously stored for its
// path in a single transaction.
func (s *Store) SaveDocument(doc Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deletePath(tx, doc.Path); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO documents (path, hash, analyzed_at) VALUES (?, ?, ?)`,
		doc.Path, doc.Hash, doc.AnalyzedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for i, d := range doc.Diagnostics {
		if _, err := tx.Exec(`
			INSERT INTO diagnostics (path, seq, line, severity, code, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, doc.Path, i, d.Line, string(d.Severity), string(d.Code), d.Message); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	for _, c := range doc.Contexts {
		parents, _ := json.Marshal(c.Parents)
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO contexts (path, name, parents, line) VALUES (?, ?, ?, ?)`,
			doc.Path, c.Name, string(parents), c.Line,
		); err != nil {
			return fmt.Errorf("insert context: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its diagnostics and contexts.
func (s *Store) DeleteDocument(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deletePath(tx, path); err != nil {
		return err
	}
	return tx.Commit()
}

func deletePath(tx *sql.Tx, path string) error {
	for _, table := range []string{"documents", "diagnostics", "contexts"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE path = ?", path); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// LoadDiagnostics returns the stored diagnostics of path in their original
// order.
func (s *Store) LoadDiagnostics(path string) ([]domain.Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT line, severity, code, message FROM diagnostics WHERE path = ? ORDER BY seq`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []domain.Diagnostic
	for rows.Next() {
		var d domain.Diagnostic
		var sev, code string
		if err := rows.Scan(&d.Line, &sev, &code, &d.Message); err != nil {
			return nil, err
		}
		d.Severity = domain.Severity(sev)
		d.Code = domain.Code(code)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// LoadAll retrieves every stored document, ordered by path.
func (s *Store) LoadAll() ([]Document, error) {
	rows, err := s.db.Query(`SELECT path, hash, analyzed_at FROM documents ORDER BY path`)
	if err != nil {
		return nil, err
	}
	var docs []Document
	for rows.Next() {
		var doc Document
		var nanos int64
		if err := rows.Scan(&doc.Path, &doc.Hash, &nanos); err != nil {
			rows.Close()
			return nil, err
		}
		doc.AnalyzedAt = time.Unix(0, nanos)
		docs = append(docs, doc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		if docs[i].Diagnostics, err = s.LoadDiagnostics(docs[i].Path); err != nil {
			return nil, err
		}
		if docs[i].Contexts, err = s.loadContexts(docs[i].Path); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *Store) loadContexts(path string) ([]domain.Context, error) {
	rows, err := s.db.Query(
		`SELECT name, parents, line FROM contexts WHERE path = ? ORDER BY line`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contexts []domain.Context
	for rows.Next() {
		var c domain.Context
		var parents string
		if err := rows.Scan(&c.Name, &parents, &c.Line); err != nil {
			return nil, err
		}
		if parents != "" {
			if err := json.Unmarshal([]byte(parents), &c.Parents); err != nil {
				return nil, fmt.Errorf("decode parents of %s in %s: %w", c.Name, path, err)
			}
		}
		contexts = append(contexts, c)
	}
	return contexts, rows.Err()
}
