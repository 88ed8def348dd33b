package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/ragchat/pkg/chatmodel"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/llmutils"
	"github.com/effective-security/ragchat/pkg/prompts"
	"github.com/effective-security/ragchat/pkg/schema"
)

var TimeNowFn = time.Now

// RunStats is the summary of a chain run.
type RunStats struct {
	ChatID string
	RunID  string

	Duration            time.Duration
	TotalMessages       uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	LLMCalls            uint32
	ChainCalls          uint32
	ChainCallsSucceeded uint32
	ChainCallsFailed    uint32
	DocumentsRetrieved  uint32
}

// Scratchpad collects a transcript and stats per run.
// Runs are identified by the chatmodel.ChatContext of the context,
// events without a started run are ignored.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts collecting events for the ChatContext of ctx.
// It does nothing if ctx does not carry a ChatContext.
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return
	}

	r := &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[chatCtx.RunID()] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun returns the stats and the transcript of the run, and forgets it.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.snapshot()
	stats.Duration = TimeNowFn().Sub(run.started)

	run.print(fmt.Sprintf("Chain calls: %d, Failed: %d, Documents: %d",
		stats.ChainCalls,
		stats.ChainCallsFailed,
		stats.DocumentsRetrieved,
	))
	run.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Bytes Total: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMBytesOut+stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))

	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, run.chatCtx.RunID())
	l.lock.Unlock()

	return &stats, run.bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatCtx.RunID()]
}

func (l *Scratchpad) OnChainStart(ctx context.Context, chain string, question string, history []prompts.ChatTurn) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ChainCalls, 1)
	run.print(chain, "*** Chain Start ***")
	run.print(chain, "Question:", question)
	if l.mode == ModeVerbose && len(history) > 0 {
		run.print(chain, "History:\n"+prompts.FormatChatHistory(history))
	}
}

func (l *Scratchpad) OnCondenseEnd(ctx context.Context, chain string, question, standalone string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print(chain, "Standalone:", standalone)
}

func (l *Scratchpad) OnRetrieverEnd(ctx context.Context, chain string, query string, docs []schema.Document) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.DocumentsRetrieved, uint32(len(docs)))
	run.print(chain, "*** Retrieved ***", fmt.Sprintf("%d documents", len(docs)))
	if l.mode == ModeVerbose {
		var buf bytes.Buffer
		llmutils.PrintDocuments(&buf, docs, false)
		run.print(chain, buf.String())
	}
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, chain string, llm llms.Model, payload []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print(chain, "*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		var buf bytes.Buffer
		llmutils.PrintMessages(&buf, payload)
		run.print(chain, buf.String())
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, chain string, llm llms.Model, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(tokensTotal))

	run.print(chain, "*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens", llm.GetName(), tokensIn, tokensOut, tokensTotal))
}

func (l *Scratchpad) OnChainEnd(ctx context.Context, chain string, answer string, docs []schema.Document) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ChainCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(chain, "Answer:", answer)
	}
	run.print(chain, "*** Chain End ***")
}

func (l *Scratchpad) OnChainError(ctx context.Context, chain string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ChainCallsFailed, 1)
	run.print(chain, "*** Error ***", err.Error())
}

type run struct {
	chatCtx chatmodel.ChatContext
	started time.Time
	stats   RunStats

	lock sync.Mutex
	w    bytes.Buffer
}

func (r *run) snapshot() RunStats {
	return RunStats{
		ChatID:              r.stats.ChatID,
		RunID:               r.stats.RunID,
		TotalMessages:       atomic.LoadUint32(&r.stats.TotalMessages),
		LLMBytesOut:         atomic.LoadUint64(&r.stats.LLMBytesOut),
		LLMBytesIn:          atomic.LoadUint64(&r.stats.LLMBytesIn),
		LLMInputTokens:      atomic.LoadUint64(&r.stats.LLMInputTokens),
		LLMOutputTokens:     atomic.LoadUint64(&r.stats.LLMOutputTokens),
		LLMTotalTokens:      atomic.LoadUint64(&r.stats.LLMTotalTokens),
		LLMCalls:            atomic.LoadUint32(&r.stats.LLMCalls),
		ChainCalls:          atomic.LoadUint32(&r.stats.ChainCalls),
		ChainCallsSucceeded: atomic.LoadUint32(&r.stats.ChainCallsSucceeded),
		ChainCallsFailed:    atomic.LoadUint32(&r.stats.ChainCallsFailed),
		DocumentsRetrieved:  atomic.LoadUint32(&r.stats.DocumentsRetrieved),
	}
}

func (r *run) bytes() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return bytes.Clone(r.w.Bytes())
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID.runID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.chatCtx.RunID())
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
