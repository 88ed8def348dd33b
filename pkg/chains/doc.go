// Package chains provides the conversational retrieval question answering chain.
//
// A chain run has three sequential stages:
//
//  1. condense: the follow up question and the chat history are rephrased
//     by the model into a standalone question;
//  2. retrieve: the standalone question is sent to the retriever;
//  3. answer: the retrieved documents are stuffed into the answer prompt
//     and the model replies.
//
// MakeChain builds a chain backed by the OpenAI gpt-4 model,
// NewConversationalRetrievalQA accepts any llms.Model.
package chains
