package prompts

import "strings"

// ChatTurn is one prior exchange of a conversation.
type ChatTurn struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// FormatChatHistory renders the turns in order, one `Human:` and one
// `Assistant:` line per turn. Empty history renders as an empty string.
func FormatChatHistory(history []ChatTurn) string {
	lines := make([]string, 0, len(history)*2)
	for _, turn := range history {
		lines = append(lines, "Human: "+turn.Question, "Assistant: "+turn.Answer)
	}
	return strings.Join(lines, "\n")
}
