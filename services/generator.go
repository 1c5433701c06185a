package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// CompletionRequest is a single stateless prompt. When Schema is set the
// model is asked to answer with JSON matching it.
type CompletionRequest struct {
	Prompt string
	Schema *genai.Schema
}

// Completer is a stateless text-completion service.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ChatSession is a conversation that keeps its own turn history.
type ChatSession interface {
	SendMessage(ctx context.Context, prompt string) (string, error)
}

// ChatFactory starts a new conversation for a mode.
type ChatFactory interface {
	NewChat(ctx context.Context, mode Mode) (ChatSession, error)
}

// ImageTranscriber extracts the text visible in an image.
type ImageTranscriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// GeminiCompleter answers stateless prompts and transcribes images with one
// Gemini model.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter returns a Completer backed by a single Gemini model.
func NewGeminiCompleter(client *genai.Client, model string) *GeminiCompleter {
	return &GeminiCompleter{client: client, model: model}
}

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var config *genai.GenerateContentConfig
	if req.Schema != nil {
		config = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		}
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	text := responseText(result)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func (g *GeminiCompleter) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: ocrPrompt},
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
		},
	}}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini image transcription failed: %w", err)
	}
	return responseText(result), nil
}

type geminiChatFactory struct {
	client *genai.Client
	models map[Mode]string
}

// NewGeminiChatFactory starts Gemini chats using the model configured for
// each mode and the mode's system instruction.
func NewGeminiChatFactory(client *genai.Client, models map[Mode]string) ChatFactory {
	return &geminiChatFactory{client: client, models: models}
}

func (f *geminiChatFactory) NewChat(ctx context.Context, mode Mode) (ChatSession, error) {
	model, ok := f.models[mode]
	if !ok {
		return nil, fmt.Errorf("no model configured for mode %s", mode)
	}
	chat, err := f.client.Chats.Create(ctx, model, &genai.GenerateContentConfig{
		SystemInstruction: GetSystemPrompt(mode),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start new chat session: %w", err)
	}
	return &geminiChat{chat: chat}, nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (g *geminiChat) SendMessage(ctx context.Context, prompt string) (string, error) {
	result, err := g.chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	text := responseText(result)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	return responseText.String()
}
