package prompts

// Placeholder names used by the conversational retrieval chain.
const (
	VarChatHistory = "chat_history"
	VarQuestion    = "question"
	VarContext     = "context"
)

// CondenseQuestionTemplate rephrases a follow-up question into a standalone
// question. It requires {chat_history} and {question}.
const CondenseQuestionTemplate = `Given the chat history and a follow-up question, rephrase the follow-up question to be a standalone question that encompasses all necessary context from the chat history.

Chat History:
{chat_history}

Follow-up input: {question}

Make sure your standalone question is self-contained, clear, and specific. Rephrased standalone question:`

// QATemplate writes a long form answer from the retrieved documents.
// It requires {context} and {question}.
const QATemplate = `You are an intelligent AI assistant designed to write novels based on specific provided documents. The context from these documents has been processed and made accessible to you.

Your mission is to generate complete novels that are accurate, and comprehensive, drawing upon the information contained in the context of the documents. Those novels must be of 1500 words or more. If the answer isn't readily found in the documents, you should make use of your training data and understood context to infer and provide the most plausible response.

Here is the context from the documents:

Context: {context}

Here is the user's question:

Question: {question}

Provide your response in markdown format.`

// DefaultCondensePrompt returns the default condensation prompt.
func DefaultCondensePrompt() PromptTemplate {
	return NewPromptTemplate(CondenseQuestionTemplate, []string{VarChatHistory, VarQuestion})
}

// DefaultQAPrompt returns the default answer prompt.
func DefaultQAPrompt() PromptTemplate {
	return NewPromptTemplate(QATemplate, []string{VarContext, VarQuestion})
}
