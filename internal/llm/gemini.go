package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient talks to Google's Gemini models.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model, timeout: opts.Timeout}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.model
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGemini(err)
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &APIError{Provider: ProviderGemini, Err: errors.New("empty response from model")}
	}
	return text, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}

func classifyGemini(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyStatus(ProviderGemini, gErr.Code, err)
	}
	return classifyMessage(ProviderGemini, err)
}
