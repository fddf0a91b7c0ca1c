package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	client     *openai.Client
	httpClient *http.Client
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	httpClient := &http.Client{Timeout: opts.Timeout}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = httpClient
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		httpClient: httpClient,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserContent})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: openAITemperature(req.Temperature),
		MaxTokens:   req.MaxOutputTokens,
	})
	if err != nil {
		return "", serviceError(c.Name(), openAIStatus(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", serviceError(c.Name(), 0, fmt.Errorf("empty response from openai"))
	}
	return resp.Choices[0].Message.Content, nil
}

// openAITemperature keeps a zero temperature on the wire; the request field
// is omitempty, so 0 would otherwise fall back to the server default.
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
