package report

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/model"
)

// GenerateFailedMessage is returned to callers when the LLM step fails.
const GenerateFailedMessage = "Failed to generate AI report"

// GeneratorConfig fixes the sampling parameters for every report.
type GeneratorConfig struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	StripMarkdown bool
}

// Generator builds the prompt for a submission and drafts the report.
type Generator struct {
	llm       Completer
	templates *Templates
	cfg       GeneratorConfig
	website   WebsiteReader
}

// NewGenerator creates a Generator. website may be nil to skip fetching the
// lead's site.
func NewGenerator(llm Completer, templates *Templates, cfg GeneratorConfig, website WebsiteReader) *Generator {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Generator{llm: llm, templates: templates, cfg: cfg, website: website}
}

// Generate drafts the report text. Upstream failures are logged and
// replaced with a generic *UpstreamError.
func (g *Generator) Generate(ctx context.Context, form model.FormSubmission) (*model.GeneratedReport, error) {
	data := PromptData{
		BusinessName: form.BusinessName,
		BusinessType: form.BusinessType,
		Website:      form.WebsiteLink,
	}
	if g.website != nil && form.WebsiteLink != "" {
		text, err := g.website.Read(ctx, form.WebsiteLink)
		if err != nil {
			zap.L().Warn("report: website fetch failed, continuing without it",
				zap.String("url", form.WebsiteLink),
				zap.Error(err),
			)
		} else {
			data.WebsiteText = text
		}
	}

	prompt, err := g.templates.RenderPrompt(data)
	if err != nil {
		return nil, upstream(StepGenerateReport, GenerateFailedMessage, err)
	}

	res, err := g.llm.Complete(ctx, Completion{
		Model:       g.cfg.Model,
		System:      g.templates.System,
		Prompt:      prompt,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		zap.L().Error("report: completion failed",
			zap.String("provider", g.llm.Provider()),
			zap.String("model", g.cfg.Model),
			zap.Error(err),
		)
		return nil, upstream(StepGenerateReport, GenerateFailedMessage, err)
	}

	text := res.Text
	if g.cfg.StripMarkdown {
		text = stripMarkdown(text)
	}
	recordTokens(g.llm.Provider(), res.InputTokens, res.OutputTokens)

	modelID := res.Model
	if modelID == "" {
		modelID = g.cfg.Model
	}
	return &model.GeneratedReport{
		Text:         text,
		Model:        modelID,
		Provider:     g.llm.Provider(),
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}, nil
}

// stripMarkdown removes the * and # characters models use for emphasis and
// headings.
func stripMarkdown(s string) string {
	return strings.NewReplacer("*", "", "#", "").Replace(s)
}
