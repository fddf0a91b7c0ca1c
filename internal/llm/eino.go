package llm

import (
	"context"
	"fmt"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient talks to OpenAI-compatible endpoints through an eino chat model.
type EinoClient struct {
	cm *einoopenai.ChatModel
}

func NewEinoClient(ctx context.Context, opts Options) (*EinoClient, error) {
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		Model:   opts.Model,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init eino chat model: %w", err)
	}
	return &EinoClient{cm: cm}, nil
}

func (c *EinoClient) Name() string { return "eino" }

// Generate ignores req.Model; the model is fixed when the client is built.
func (c *EinoClient) Generate(ctx context.Context, req Request) (string, error) {
	var msgs []*schema.Message
	if req.SystemPrompt != "" {
		msgs = append(msgs, &schema.Message{Role: schema.System, Content: req.SystemPrompt})
	}
	msgs = append(msgs, &schema.Message{Role: schema.User, Content: req.UserContent})

	resp, err := c.cm.Generate(ctx, msgs,
		model.WithTemperature(float32(req.Temperature)),
		model.WithMaxTokens(req.MaxOutputTokens),
	)
	if err != nil {
		return "", serviceError(c.Name(), 0, err)
	}
	if resp == nil {
		return "", serviceError(c.Name(), 0, fmt.Errorf("empty response from chat model"))
	}
	return resp.Content, nil
}

func (c *EinoClient) Close() {}
