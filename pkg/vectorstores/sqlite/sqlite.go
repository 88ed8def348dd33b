// Package sqlite provides a vector store persisted in a SQLite file.
// Vectors are stored as JSON and ranked in process.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/effective-security/xlog"

	// modernc.org/sqlite registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg/vectorstores", "sqlite")

//go:embed schema.sql
var schemaSQL string

// DefaultCollection is the collection used when none is given.
const DefaultCollection = "default"

// Store is a SQLite vector store.
type Store struct {
	db         *sql.DB
	embedder   llms.Embedder
	collection string
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New opens or creates the database file and its schema.
func New(ctx context.Context, path string, embedder llms.Embedder, collection string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range append(pragmas, schemaSQL) {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to execute: %s", strings.SplitN(stmt, "\n", 2)[0])
		}
	}

	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		db:         db,
		embedder:   embedder,
		collection: collection,
	}, nil
}

// AddDocuments implements vectorstores.VectorStore.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids, vectors, err := vectorstores.EmbedDocuments(ctx, s.embedder, docs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		vec, err := json.Marshal(vectors[i])
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal vector")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_documents (collection, id, seq, content, metadata, embedding)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM vector_documents WHERE collection = ?), ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET
				content = excluded.content,
				metadata = excluded.metadata,
				embedding = excluded.embedding`,
			s.collection, ids[i], s.collection, doc.PageContent, string(meta), string(vec))
		if err != nil {
			return nil, errors.Wrap(err, "failed to upsert document")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit documents")
	}
	return ids, nil
}

// SimilaritySearch implements vectorstores.VectorStore.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := vectorstores.NewOptions(options...)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	vector, err := vectorstores.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}
	return vectorstores.Rank(vector, candidates, numDocuments, opts), nil
}

func (s *Store) candidates(ctx context.Context) ([]vectorstores.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding
		FROM vector_documents
		WHERE collection = ?
		ORDER BY seq`, s.collection)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	var candidates []vectorstores.Candidate
	for rows.Next() {
		var id, content, meta, vec string
		if err := rows.Scan(&id, &content, &meta, &vec); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		c := vectorstores.Candidate{Document: schema.Document{PageContent: content}}
		if err := json.Unmarshal([]byte(vec), &c.Vector); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal vector", "id", id, "err", err.Error())
			continue
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &c.Document.Metadata); err != nil {
				logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal metadata", "id", id, "err", err.Error())
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, errors.WithStack(rows.Err())
}

// Delete removes the documents by ID.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_documents WHERE collection = ? AND id = ?`, s.collection, id); err != nil {
			return errors.Wrap(err, "failed to delete document")
		}
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_documents WHERE collection = ?`, s.collection).Scan(&n)
	return n, errors.WithStack(err)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
