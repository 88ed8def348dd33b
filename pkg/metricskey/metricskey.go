package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"chain", "model"},
	}

	StatsChainCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chain_calls_succeeded",
		Help:         "stats_chain_calls_succeeded provides total chain calls succeeded",
		RequiredTags: []string{"chain"},
	}

	StatsChainCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chain_calls_failed",
		Help:         "stats_chain_calls_failed provides total chain calls failed",
		RequiredTags: []string{"chain", "stage"},
	}

	StatsRetrieverDocuments = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_retriever_documents",
		Help:         "stats_retriever_documents provides total documents returned by retrievers",
		RequiredTags: []string{"chain"},
	}
)

// Perf
var (
	PerfChainCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chain_call",
		Help:         "perf_chain_call provides duration of chain call",
		RequiredTags: []string{"chain"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of LLM call",
		RequiredTags: []string{"chain", "stage"},
	}

	PerfRetrieverCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_retriever_call",
		Help:         "perf_retriever_call provides duration of retriever call",
		RequiredTags: []string{"chain"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChainCall,
	&PerfLLMCall,
	&PerfRetrieverCall,
	&StatsChainCallsFailed,
	&StatsChainCallsSucceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsRetrieverDocuments,
}
