package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiService calls the Gemini API through the official SDK. The client is
// built once at startup and shared read-only across requests.
type GeminiService struct {
	client *genai.Client
	model  string
}

// NewGeminiService constructs the provider client from an API key. An empty
// key is an error so that callers can leave the capability unconfigured and
// fail requests fast instead of carrying a broken client.
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini model is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiService{client: client, model: model}, nil
}

// Generate performs exactly one completion attempt for the given context.
// The leading system message becomes the SDK's system instruction; the rest
// map onto user/model contents in their original order.
func (s *GeminiService) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("gemini client is not initialised")
	}

	var cfg *genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(msg.Content, genai.RoleUser),
			}
		case RoleModel, "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(contents) == 0 {
		return "", errors.New("prompt context contains no user content")
	}

	res, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}

	return text, nil
}
