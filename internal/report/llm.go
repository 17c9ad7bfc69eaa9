package report

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-report/pkg/anthropic"
	"github.com/sells-group/opportunity-report/pkg/openai"
)

// Completion is a provider-neutral chat completion request.
type Completion struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer drafts text from a prompt.
type Completer interface {
	Complete(ctx context.Context, req Completion) (*CompletionResult, error)
	Provider() string
}

// CompletionResult is the drafted text plus usage.
type CompletionResult struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

type openAICompleter struct {
	client openai.Client
}

// NewOpenAICompleter adapts an OpenAI client.
func NewOpenAICompleter(c openai.Client) Completer {
	return &openAICompleter{client: c}
}

func (c *openAICompleter) Provider() string { return "openai" }

func (c *openAICompleter) Complete(ctx context.Context, req Completion) (*CompletionResult, error) {
	temp := req.Temperature
	maxTokens := req.MaxTokens
	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("report: completion returned no choices")
	}
	return &CompletionResult{
		Text:         resp.Content(),
		Model:        resp.Model,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

type anthropicCompleter struct {
	client anthropic.Client
}

// NewAnthropicCompleter adapts an Anthropic client.
func NewAnthropicCompleter(c anthropic.Client) Completer {
	return &anthropicCompleter{client: c}
}

func (c *anthropicCompleter) Provider() string { return "anthropic" }

func (c *anthropicCompleter) Complete(ctx context.Context, req Completion) (*CompletionResult, error) {
	temp := req.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(req.Model, StepGenerateReport)

	text := resp.Text()
	if text == "" {
		return nil, eris.New("report: completion returned no text")
	}
	return &CompletionResult{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
