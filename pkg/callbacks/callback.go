// Package callbacks provides observers for the stages of a retrieval chain run.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llmutils"
	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/effective-security/ragchat/pkg/schema"
	"github.com/effective-security/xlog"
)

// Handler receives the events of a chain run.
// The chain argument is the name of the chain emitting the event.
type Handler interface {
	OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn)
	// OnCondenseEnd is called when the follow up question was rephrased into a standalone one.
	OnCondenseEnd(ctx context.Context, chain string, question, standalone string)
	OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document)
	OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse)
	OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document)
	OnChainError(ctx context.Context, chain string, err error)
}

// ensure that the callbacks implement the Handler interface
var (
	_ Handler = (*Noop)(nil)
	_ Handler = (*Printer)(nil)
	_ Handler = (*PackageLogger)(nil)
	_ Handler = (*Fanout)(nil)
	_ Handler = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []Handler
}

func NewFanout(callbacks ...Handler) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback Handler) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn) {
	for _, callback := range l.callbacks {
		callback.OnChainStart(ctx, chain, question, history)
	}
}

func (l *Fanout) OnCondenseEnd(ctx context.Context, chain string, question, standalone string) {
	for _, callback := range l.callbacks {
		callback.OnCondenseEnd(ctx, chain, question, standalone)
	}
}

func (l *Fanout) OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document) {
	for _, callback := range l.callbacks {
		callback.OnRetrieverEnd(ctx, chain, query, docs)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, chain, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, chain, llm, resp)
	}
}

func (l *Fanout) OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document) {
	for _, callback := range l.callbacks {
		callback.OnChainEnd(ctx, chain, answer, docs)
	}
}

func (l *Fanout) OnChainError(ctx context.Context, chain string, err error) {
	for _, callback := range l.callbacks {
		callback.OnChainError(ctx, chain, err)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn) {
}
func (l *Noop) OnCondenseEnd(ctx context.Context, chain string, question, standalone string) {}
func (l *Noop) OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document) {
}
func (l *Noop) OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse) {
}
func (l *Noop) OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document) {
}
func (l *Noop) OnChainError(ctx context.Context, chain string, err error) {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chain Start: %s, %d turns\n", chain, len(history))
	fmt.Fprintf(l.Out, "Question: %s\n", question)
	if l.Mode == ModeVerbose && len(history) > 0 {
		fmt.Fprintln(l.Out, prompts.FormatChatHistory(history))
	}
}

func (l *Printer) OnCondenseEnd(ctx context.Context, chain string, question, standalone string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Standalone Question: %s\n", standalone)
}

func (l *Printer) OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Retriever End: %s: %d documents\n", chain, len(docs))
	if l.Mode == ModeVerbose {
		llmutils.PrintDocuments(l.Out, docs, true)
	}
}

func (l *Printer) OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %s model, %d messages\n", chain, llm.GetName(), len(payload))
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, payload)
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	choices := 0
	if resp != nil {
		choices = len(resp.Choices)
	}
	fmt.Fprintf(l.Out, "LLM Call End: %s: %s model, %d choices\n", chain, llm.GetName(), choices)
}

func (l *Printer) OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chain End: %s\n", chain)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Answer: %s\n", answer)
	}
}

func (l *Printer) OnChainError(ctx context.Context, chain string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chain Error: %s: %s\n", chain, err.Error())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chain_start",
		"chain", chain,
		"question", question,
		"turns", len(history),
	)
}

func (l *PackageLogger) OnCondenseEnd(ctx context.Context, chain string, question, standalone string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "condense_end",
		"chain", chain,
		"standalone", standalone,
	)
}

func (l *PackageLogger) OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "retriever_end",
		"chain", chain,
		"query", query,
		"documents", len(docs),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"chain", chain,
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse) {
	in, out, total := llmutils.CountTokens(resp)
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"chain", chain,
		"model", llm.GetName(),
		"tokens_in", in,
		"tokens_out", out,
		"tokens_total", total,
	)
}

func (l *PackageLogger) OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chain_end",
		"chain", chain,
		"documents", len(docs),
	)
}

func (l *PackageLogger) OnChainError(ctx context.Context, chain string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "chain_error",
		"chain", chain,
		"err", err.Error(),
	)
}
