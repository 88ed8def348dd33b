// Package tavily provides a retriever backed by the Tavily web search API.
package tavily

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/ragchat/pkg/retrievers", "tavily")

const apiKeyEnvVarName = "TAVILY_API_KEY" //nolint:gosec

// Search depths supported by the API.
const (
	SearchDepthBasic    = "basic"
	SearchDepthAdvanced = "advanced"
)

var (
	// ErrMissingAPIKey is returned when the API key is not provided.
	ErrMissingAPIKey = errors.New("missing the Tavily API key, set it in the TAVILY_API_KEY environment variable")
	// ErrEmptyQuery is returned for an empty query.
	ErrEmptyQuery = errors.New("empty query")
)

// Metadata keys of the returned documents.
const (
	MetadataSource = "source"
	MetadataTitle  = "title"
)

// Retriever returns web search results as documents.
type Retriever struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	searchDepth  string
	maxDocuments int
	answer       bool
}

var _ schema.Retriever = (*Retriever)(nil)

// Option configures the Retriever.
type Option func(*Retriever)

// WithAPIKey sets the API key, TAVILY_API_KEY is used by default.
func WithAPIKey(apiKey string) Option {
	return func(r *Retriever) {
		r.apiKey = apiKey
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(r *Retriever) {
		r.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Retriever) {
		r.httpClient = client
	}
}

// WithSearchDepth sets SearchDepthBasic or SearchDepthAdvanced.
func WithSearchDepth(depth string) Option {
	return func(r *Retriever) {
		r.searchDepth = depth
	}
}

// WithMaxDocuments limits the number of returned documents and is sent as
// the result limit of the search request, zero uses the API default.
func WithMaxDocuments(n int) Option {
	return func(r *Retriever) {
		r.maxDocuments = n
	}
}

// WithAnswer prepends the answer aggregated by the search API,
// when it is present, as the first document.
func WithAnswer(answer bool) Option {
	return func(r *Retriever) {
		r.answer = answer
	}
}

// New returns a Retriever.
func New(opts ...Option) (*Retriever, error) {
	r := &Retriever{
		httpClient:  http.DefaultClient,
		searchDepth: SearchDepthBasic,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.apiKey = values.StringsCoalesce(r.apiKey, os.Getenv(apiKeyEnvVarName))
	if r.apiKey == "" {
		return nil, errors.WithStack(ErrMissingAPIKey)
	}
	return r, nil
}

// GetRelevantDocuments returns the search results in the order of the API.
// The Tavily client has no context parameter, ctx is attached to its HTTP
// requests by the transport, so cancellation and deadlines abort the search.
func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	if query == "" {
		return nil, errors.WithStack(ErrEmptyQuery)
	}

	client := tavilygo.NewClient(r.apiKey)
	if r.baseURL != "" {
		client.BaseURL = r.baseURL
	}
	client.HTTPClient = withContext(ctx, r.httpClient)

	resp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         query,
		SearchDepth:   r.searchDepth,
		IncludeAnswer: r.answer,
		MaxResults:    r.maxDocuments,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	docs := make([]schema.Document, 0, len(resp.Results)+1)
	if r.answer && resp.Answer != "" {
		docs = append(docs, schema.Document{
			PageContent: resp.Answer,
			Metadata:    map[string]any{MetadataSource: "tavily_answer"},
		})
	}
	for _, res := range resp.Results {
		docs = append(docs, schema.Document{
			PageContent: res.Content,
			Metadata: map[string]any{
				MetadataSource: res.URL,
				MetadataTitle:  res.Title,
			},
			Score: float32(res.Score),
		})
	}
	if r.maxDocuments > 0 && len(docs) > r.maxDocuments {
		docs = docs[:r.maxDocuments]
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "searched",
		"results", len(resp.Results),
		"documents", len(docs),
	)
	return docs, nil
}

// withContext returns a copy of the client sending its requests with ctx.
func withContext(ctx context.Context, hc *http.Client) *http.Client {
	c := http.Client{}
	if hc != nil {
		c = *hc
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = contextTransport{ctx: ctx, base: base}
	return &c
}

type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
