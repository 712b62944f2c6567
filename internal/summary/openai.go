package summary

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIOptions configures an OpenAICompleter.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration // 0 means no client timeout
}

// OpenAICompleter implements Completer with the chat completions API.
type OpenAICompleter struct {
	client oai.Client
	model  string
}

func NewOpenAICompleter(opts OpenAIOptions) (*OpenAICompleter, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: api key must not be empty")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: opts.Timeout,
		}))
	}

	return &OpenAICompleter{
		client: oai.NewClient(reqOpts...),
		model:  opts.Model,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
