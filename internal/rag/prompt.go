package rag

import "strings"

// DefaultTemplate is the instructional prompt template. The {context}
// slot receives the retrieved chunks and {question} the user's
// question. It is a configuration constant: swapping it changes answer
// style, never parsing behavior.
const DefaultTemplate = `You are an intelligent assistant helping a user understand information from their document.

Instructions:
- Carefully analyze the provided context from the document.
- Answer the user's question based ONLY on the information provided in the context.
- If the answer is fully contained in the context, provide a clear, concise response.
- If the answer is partially in the context, provide what you can find and indicate what information is missing.
- If the answer is not in the context at all, politely state that the information isn't present in the provided sections.
- Do not make up information or use knowledge outside of the provided context.
- If the context is ambiguous or unclear, acknowledge this and explain what's confusing.
- For complex questions, break down your answer into structured parts.

Context from document: {context}

User Question: {question}

Answer:`

// chunkDelimiter separates retrieved chunks inside the context slot.
const chunkDelimiter = "\n\n"

// assemblePrompt fills the template's context slot with the chunk texts
// in retrieval rank order, each verbatim, and the question slot with
// the raw question.
func assemblePrompt(template string, chunks []string, question string) string {
	replacer := strings.NewReplacer(
		"{context}", strings.Join(chunks, chunkDelimiter),
		"{question}", question,
	)
	return replacer.Replace(template)
}
