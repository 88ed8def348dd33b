package chains_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/ragchat/pkg/chains"
	"github.com/effective-security/ragchat/pkg/llms"
	"github.com/effective-security/ragchat/pkg/schema"
)

// echoModel replies with the standalone question to the condense prompt,
// and with the stuffed context to the answer prompt.
type echoModel struct{}

func (echoModel) GetName() string                    { return "echo" }
func (echoModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (echoModel) GenerateContent(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	text := messages[0].GetText()
	reply := "How do I reset my password?"
	if i := strings.Index(text, "Context: "); i >= 0 {
		reply = strings.SplitN(text[i+len("Context: "):], "\n", 2)[0]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func ExampleConversationalRetrievalQA_Ask() {
	retriever := schema.RetrieverFunc(func(_ context.Context, query string) ([]schema.Document, error) {
		return []schema.Document{
			{PageContent: "Open Settings and choose Reset password.", Metadata: map[string]any{"source": "faq.md"}},
		}, nil
	})

	chain, err := chains.NewConversationalRetrievalQA(echoModel{}, retriever,
		chains.WithReturnSourceDocuments(true),
		chains.WithTemperature(0),
	)
	if err != nil {
		panic(err)
	}

	res, err := chain.Ask(context.Background(), "and how do I reset it?", []chains.ChatTurn{
		{Question: "I forgot my password", Answer: "You can reset it."},
	})
	if err != nil {
		panic(err)
	}

	fmt.Println(res.StandaloneQuestion)
	fmt.Println(res.Answer)
	fmt.Println(res.SourceDocuments[0].Metadata["source"])
	// Output:
	// How do I reset my password?
	// Open Settings and choose Reset password.
	// faq.md
}
