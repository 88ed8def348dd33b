package vectorstores

import (
	"math"
	"slices"

	"github.com/effective-security/ragchat/pkg/schema"
)

// CosineSimilarity returns the cosine of the angle between the vectors,
// 0 when the lengths differ or a vector is zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Candidate is a stored document with its vector.
type Candidate struct {
	Document schema.Document
	Vector   []float32
}

// Rank scores the candidates against the query vector and returns up to k documents
// passing the options, ordered by descending score. Equal scores keep the candidates order.
// A non-positive k returns DefaultNumDocuments, the score threshold applies only when positive.
func Rank(query []float32, candidates []Candidate, k int, opts Options) []schema.Document {
	docs := make([]schema.Document, 0, len(candidates))
	for _, c := range candidates {
		if !MatchFilters(c.Document.Metadata, opts.Filters) {
			continue
		}
		doc := c.Document
		doc.Score = CosineSimilarity(query, c.Vector)
		if opts.ScoreThreshold > 0 && doc.Score < opts.ScoreThreshold {
			continue
		}
		docs = append(docs, doc)
	}

	slices.SortStableFunc(docs, func(a, b schema.Document) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if k <= 0 {
		k = DefaultNumDocuments
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}
