// Package chatmodel carries per-conversation identity through context.Context,
// so callbacks, logs and stats of a chain run can be correlated.
package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// DefaultTenantID is used when the chat is created without a tenant.
const DefaultTenantID = "default"

// ErrNoChatContext is returned when the context does not carry a ChatContext.
var ErrNoChatContext = errors.New("chat context not found")

// ChatContext identifies a conversation and a single run within it.
type ChatContext interface {
	GetTenantID() string
	GetChatID() string
	// SetChatID changes the conversation ID, the run ID is preserved.
	SetChatID(chatID string)
	// RunID is unique per ChatContext instance.
	RunID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	tenantID string
	runID    string
	appData  any
	metadata sync.Map

	lock   sync.RWMutex
	chatID string
}

func (c *chatContext) GetTenantID() string {
	return c.tenantID
}

func (c *chatContext) GetChatID() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.chatID
}

func (c *chatContext) SetChatID(chatID string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.chatID = chatID
}

func (c *chatContext) RunID() string {
	return c.runID
}

func (c *chatContext) AppData() any {
	return c.appData
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a ChatContext.
// Empty tenantID is replaced by DefaultTenantID, empty chatID by a new ID.
func NewChatContext(tenantID, chatID string, appData any) ChatContext {
	return &chatContext{
		tenantID: values.StringsCoalesce(tenantID, DefaultTenantID),
		chatID:   values.StringsCoalesce(chatID, NewChatID()),
		runID:    NewChatID(),
		appData:  appData,
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// NewFromContext returns a background context carrying the ChatContext of ctx, if any.
// Use it for work that must outlive the cancellation of ctx.
func NewFromContext(ctx context.Context) context.Context {
	nctx := context.Background()
	if c := GetChatContext(ctx); c != nil {
		nctx = WithChatContext(nctx, c)
	}
	return nctx
}

// SetChatID updates the chat ID of the ChatContext stored in ctx.
func SetChatID(ctx context.Context, chatID string) (context.Context, error) {
	c := GetChatContext(ctx)
	if c == nil {
		return ctx, errors.WithStack(ErrNoChatContext)
	}
	c.SetChatID(chatID)
	return ctx, nil
}

// GetTenantAndChatID returns the tenant and chat IDs stored in ctx.
func GetTenantAndChatID(ctx context.Context) (tenantID, chatID string, err error) {
	c := GetChatContext(ctx)
	if c == nil {
		return "", "", errors.WithStack(ErrNoChatContext)
	}
	return c.GetTenantID(), c.GetChatID(), nil
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v := GetChatContext(ctx); v != nil {
		return v.GetChatID()
	}
	return ""
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
