// Package pgvector provides a vector store backed by PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/effective-security/xlog"

	// register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg/vectorstores", "pgvector")

// DefaultTableName is the table used when none is given.
const DefaultTableName = "ragchat_documents"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store is a pgvector store.
type Store struct {
	db        *sql.DB
	embedder  llms.Embedder
	table     string
	dimension int
}

var _ vectorstores.VectorStore = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithTableName sets the table of the documents.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// New opens the database and creates the table if needed.
// The dimension is the size of the embedder vectors, e.g. 1536 for OpenAI.
func New(ctx context.Context, dsn string, dimension int, embedder llms.Embedder, opts ...Option) (*Store, error) {
	s := &Store{
		embedder:  embedder,
		table:     DefaultTableName,
		dimension: dimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validTableName.MatchString(s.table) {
		return nil, errors.Errorf("invalid table name: %q", s.table)
	}
	if s.dimension <= 0 {
		return nil, errors.Errorf("invalid dimension: %d", s.dimension)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	s.db = db

	if err = s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			content TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, s.table, s.dimension),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS seq BIGSERIAL`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return errors.Wrap(err, "failed to migrate pgvector table")
		}
	}
	return nil
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3::vector, $4::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`, s.table)

	for i, doc := range docs {
		meta, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx, query, ids[i], doc.PageContent, formatVector(vectors[i]), meta); err != nil {
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

	vector, err := vectorstores.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}
	if numDocuments <= 0 {
		numDocuments = vectorstores.DefaultNumDocuments
	}

	args := []any{formatVector(vector), numDocuments}
	var where []string
	if len(opts.Filters) > 0 {
		filters, err := marshalMetadata(opts.Filters)
		if err != nil {
			return nil, err
		}
		args = append(args, filters)
		where = append(where, fmt.Sprintf("metadata @> $%d::jsonb", len(args)))
	}
	if opts.ScoreThreshold > 0 {
		args = append(args, opts.ScoreThreshold)
		where = append(where, fmt.Sprintf("1 - (embedding <=> $1::vector) >= $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $2`, s.table, cond),
		args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	var docs []schema.Document
	for rows.Next() {
		var (
			doc   schema.Document
			meta  []byte
			score float64
		)
		if err := rows.Scan(&doc.PageContent, &meta, &score); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
				logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal metadata", "err", err.Error())
			}
		}
		if len(doc.Metadata) == 0 {
			doc.Metadata = nil
		}
		doc.Score = float32(score)
		docs = append(docs, doc)
	}
	return docs, errors.WithStack(rows.Err())
}

// Delete removes the documents by ID.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.table, strings.Join(placeholders, ","))
	_, err := s.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "failed to delete documents")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal metadata")
	}
	return string(b), nil
}

// formatVector converts the vector to pgvector text format: "[0.1,0.2,0.3]"
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
