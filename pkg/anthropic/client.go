// Package anthropic wraps the Anthropic Messages API for report drafting.
package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the Anthropic API operations used by the report pipeline.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is a single-shot completion: one system prompt and a list of turns.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Temperature *float64
}

// Message is one conversational turn. Role is "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// MessageResponse is the decoded reply to CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage
}

// Text joins the text blocks of the reply, skipping tool use and thinking blocks.
func (r *MessageResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// ContentBlock is one block of a reply; only "text" blocks carry Text.
type ContentBlock struct {
	Type string
	Text string
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Price is the USD list price per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// prices is keyed by model family; dated snapshots match by prefix.
var prices = map[string]Price{
	"claude-haiku-4-5":  {Input: 0.80, Output: 4.00},
	"claude-sonnet-4-5": {Input: 3.00, Output: 15.00},
	"claude-sonnet-4":   {Input: 3.00, Output: 15.00},
	"claude-opus-4-1":   {Input: 15.00, Output: 75.00},
}

// PriceFor returns the list price for model, matching the longest known family prefix.
func PriceFor(model string) (Price, bool) {
	var (
		best    Price
		bestLen int
	)
	for family, p := range prices {
		if strings.HasPrefix(model, family) && len(family) > bestLen {
			best, bestLen = p, len(family)
		}
	}
	return best, bestLen > 0
}

// EstimateCost returns the USD cost of u under model's list price, or 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := PriceFor(model)
	if !ok {
		return 0
	}
	return float64(u.InputTokens)*p.Input/1e6 + float64(u.OutputTokens)*p.Output/1e6
}

// LogCost records the usage of one pipeline step.
func (u TokenUsage) LogCost(model, step string) {
	zap.L().Info("anthropic: token usage",
		zap.String("step", step),
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// DefaultTimeout bounds each Messages call, retries included.
const DefaultTimeout = 120 * time.Second

type sdkClient struct {
	messages sdk.MessageService
}

// NewClient creates a client backed by the official SDK. An empty baseURL
// keeps the SDK default.
func NewClient(apiKey, baseURL string) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(DefaultTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := sdk.NewClient(opts...)
	return &sdkClient{messages: c.Messages}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	msg, err := c.messages.New(ctx, newParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return decodeMessage(msg), nil
}

func newParams(req MessageRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  encodeTurns(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func encodeTurns(turns []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(turns))
	for _, t := range turns {
		text := sdk.NewTextBlock(t.Content)
		if t.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(text))
			continue
		}
		out = append(out, sdk.NewUserMessage(text))
	}
	return out
}

func decodeMessage(msg *sdk.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
		Content: make([]ContentBlock, 0, len(msg.Content)),
	}
	for _, b := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return resp
}
