package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github/itish2003/legalrag/models"

	"google.golang.org/genai"
)

// DomainLabels is the closed vocabulary offered to the domain classifier.
var DomainLabels = []string{
	"Criminal Law",
	"Civil Law",
	"Constitutional Law",
	"Corporate Law",
	"Intellectual Property Law",
	"Environmental Law",
	"International Law",
	"Tax Law",
	"Family Law",
	"Cyber Law",
}

const ocrPrompt = "Transcribe all text visible in this image exactly as written. Output only the text."

var systemPrompts = map[Mode]string{
	ModeChatbot:  `You are a legal assistant. Answer questions concisely and accurately using the legal reference passages supplied with each question. If the passages do not cover the question, say so and answer from general legal knowledge, noting that the user should confirm with a qualified lawyer.`,
	ModeResearch: `You are a legal research assistant. When search results are supplied, ground your answer in them and keep the conversation flowing naturally. Prefer recent developments in the law over older material.`,
	ModeDraft:    `You are a legal document drafter. You produce complete, properly formatted legal documents and nothing else: no greetings, no explanations, no notes before or after the document.`,
}

// GetSystemPrompt returns the system instruction for a mode's conversations.
func GetSystemPrompt(mode Mode) *genai.Content {
	prompt, ok := systemPrompts[mode]
	if !ok {
		return nil
	}
	contents := genai.Text(prompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}

func classificationPrompt(query string) string {
	return fmt.Sprintf(`Classify this legal query: '%s'. Choose from: %s. If more than one domain is involved, you may choose them and use commas, e.g., "Civil Law, Environmental Law". **Output only the chosen domain**.`,
		query, strings.Join(DomainLabels, ", "))
}

func needsSearchPrompt(query string, history []models.ConversationTurn) string {
	return fmt.Sprintf(`Analyze this query in context of this conversation history:
%s

Current query: "%s"

Should we search online? Respond with only 'true' or 'false'.
Consider:
1. Is this asking for real-time/current information?
2. Is this a follow-up question that can be answered from context?
3. Is the answer likely in the model's training data?`, historyJSON(history), query)
}

func decomposePrompt(query string, history []models.ConversationTurn) string {
	return fmt.Sprintf(`Conversation context:
%s

Based on: "%s"
Generate %d-%d specific Google search queries to answer it fully.
Return ONLY a JSON list like: ["query 1", "query 2"]`, historyJSON(history), query, MinSubQueries, MaxSubQueries)
}

func chatbotPrompt(query string, chunks []models.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return fmt.Sprintf(`As a legal chatbot, provide a concise and informative response to the following query based on the given context:
Query: %s

Context from legal documents:
%s

Please provide a clear and helpful response, addressing the user's question directly.`, query, strings.Join(texts, "\n"))
}

func researchPrompt(query string, contextBlocks []string, history []models.ConversationTurn) string {
	return fmt.Sprintf(`Conversation history for context:
%s

Search results:
%s

Answer this query while maintaining conversation flow:
"%s"`, historyJSON(history), strings.Join(contextBlocks, "\n"), query)
}

func draftPrompt(query string) string {
	return fmt.Sprintf(`As a legal document drafter, create a draft legal notice based on the following requirements.
Give only the legal draft, without any other text, for: %s

Please provide:
1. A properly formatted legal notice
2. Clear and concise language
3. Necessary legal clauses and statements

Ensure the draft is professional and adheres to standard legal writing practices.`, query)
}

// historyJSON renders turns the way they are shown to the planner.
func historyJSON(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return "[]"
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// lastTurns returns at most n trailing turns.
func lastTurns(history []models.ConversationTurn, n int) []models.ConversationTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
