// Package redisvec provides a vector store backed by Redis hashes.
// Similarity is computed in the client, so any Redis server can be used.
//
// The keys namespace is organized as follows:
//   - `/<prefix>/vectorstore/<collection>/ids` sorted set of document IDs, scored by insertion sequence
//   - `/<prefix>/vectorstore/<collection>/seq` insertion sequence counter
//   - `/<prefix>/vectorstore/<collection>/doc/<id>` hash with content, metadata and vector
package redisvec

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/ragchat/pkg/vectorstores"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg/vectorstores", "redisvec")

const (
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
)

// DefaultCollection is the collection used when none is given.
const DefaultCollection = "default"

// Store is a Redis vector store.
type Store struct {
	client   redis.UniversalClient
	embedder llms.Embedder
	prefix   string
}

var _ vectorstores.VectorStore = (*Store)(nil)

// New returns a Store keeping documents of the collection under the prefix.
func New(client redis.UniversalClient, embedder llms.Embedder, prefix, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:   client,
		embedder: embedder,
		prefix:   path.Join(prefix, "vectorstore", collection),
	}
}

func (s *Store) idsKey() string {
	return path.Join(s.prefix, "ids")
}

func (s *Store) seqKey() string {
	return path.Join(s.prefix, "seq")
}

func (s *Store) docKey(id string) string {
	return path.Join(s.prefix, "doc", id)
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

	// reserve a sequence range, replaced documents keep their first sequence
	last, err := s.client.IncrBy(ctx, s.seqKey(), int64(len(docs))).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate document sequence")
	}
	first := last - int64(len(docs)) + 1

	pipe := s.client.TxPipeline()
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		vec, err := json.Marshal(vectors[i])
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal vector")
		}
		pipe.HSet(ctx, s.docKey(ids[i]),
			fieldContent, doc.PageContent,
			fieldMetadata, string(meta),
			fieldVector, string(vec),
		)
		pipe.ZAddNX(ctx, s.idsKey(), redis.Z{Score: float64(first + int64(i)), Member: ids[i]})
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to store documents in Redis")
	}
	return ids, nil
}

// SimilaritySearch implements vectorstores.VectorStore.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := vectorstores.NewOptions(options...)
	if err != nil {
		return nil, err
	}

	ids, err := s.client.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to list documents from Redis")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vector, err := vectorstores.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.docKey(id))
	}
	if _, err = pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "failed to get documents from Redis")
	}

	candidates := make([]vectorstores.Candidate, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		c := vectorstores.Candidate{
			Document: schema.Document{PageContent: fields[fieldContent]},
		}
		if err := json.Unmarshal([]byte(fields[fieldVector]), &c.Vector); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal vector", "id", ids[i], "err", err.Error())
			continue
		}
		if m := fields[fieldMetadata]; m != "" && m != "null" {
			if err := json.Unmarshal([]byte(m), &c.Document.Metadata); err != nil {
				logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal metadata", "id", ids[i], "err", err.Error())
			}
		}
		candidates = append(candidates, c)
	}

	return vectorstores.Rank(vector, candidates, numDocuments, opts), nil
}

// Delete removes the documents by ID.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	members := make([]any, len(ids))
	for i, id := range ids {
		pipe.Del(ctx, s.docKey(id))
		members[i] = id
	}
	pipe.ZRem(ctx, s.idsKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete documents from Redis")
	}
	return nil
}

// Reset removes all documents of the collection.
func (s *Store) Reset(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "failed to list documents from Redis")
	}
	if err = s.Delete(ctx, ids...); err != nil {
		return err
	}
	return errors.Wrap(s.client.Del(ctx, s.idsKey(), s.seqKey()).Err(), "failed to reset collection")
}
