package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"

	"studyrag/backend/internal/apperr"
)

// ChatModel drives text generation. Temperature and token limits are fixed
// per instance so the answer model and the query-refinement model can be
// tuned independently off the same client.
type ChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewChatModel(client *genai.Client, model string, temperature float32, maxTokens int32) *ChatModel {
	return &ChatModel{client: client, model: model, temperature: temperature, maxTokens: maxTokens}
}

func (c *ChatModel) generativeModel() *genai.GenerativeModel {
	gm := c.client.GenerativeModel(c.model)
	gm.SetTemperature(c.temperature)
	if c.maxTokens > 0 {
		gm.SetMaxOutputTokens(c.maxTokens)
	}
	return gm
}

// Generate returns a single atomic completion.
func (c *ChatModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generativeModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", apperr.NewExternalAPIError("failed to generate response from AI model", providerName, err)
	}
	return responseText(resp), nil
}

// Stream produces tokens one at a time through onToken, in a single pass
// over the provider's stream. A provider failure mid-stream surfaces as an
// ExternalAPIError at the point of failure; tokens already delivered stand.
// Returning an error from onToken aborts the stream.
func (c *ChatModel) Stream(ctx context.Context, prompt string, onToken func(token string) error) error {
	iter := c.generativeModel().GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return apperr.NewExternalAPIError("failed to generate response from AI model", providerName, err)
		}
		if token := responseText(resp); token != "" {
			if err := onToken(token); err != nil {
				return err
			}
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out += string(t)
			}
		}
	}
	return out
}
