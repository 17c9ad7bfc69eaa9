package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/document"
	"github.com/sells-group/opportunity-report/internal/report"
	anthropicpkg "github.com/sells-group/opportunity-report/pkg/anthropic"
	"github.com/sells-group/opportunity-report/pkg/ghl"
	"github.com/sells-group/opportunity-report/pkg/notion"
	"github.com/sells-group/opportunity-report/pkg/openai"
	"github.com/sells-group/opportunity-report/pkg/supabase"
)

// initPipeline validates the config for mode, builds every client, and
// wires the report pipeline.
func initPipeline(mode string) (*report.Pipeline, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	templates := report.DefaultTemplates()
	if cfg.Report.TemplatesPath != "" {
		t, err := report.LoadTemplates(cfg.Report.TemplatesPath)
		if err != nil {
			return nil, eris.Wrap(err, "load templates")
		}
		templates = t
	}

	crm := ghl.NewClient(cfg.CRM.APIKey, cfg.CRM.ConversationToken,
		ghl.WithBaseURL(cfg.CRM.BaseURL),
		ghl.WithConversationsURL(cfg.CRM.ConversationsURL),
		ghl.WithAPIVersion(cfg.CRM.APIVersion),
	)

	completer, modelID := initCompleter()

	var website report.WebsiteReader
	if cfg.Report.FetchWebsite {
		website = report.NewWebsiteReader(time.Duration(cfg.Report.WebsiteTimeoutSecs) * time.Second)
		zap.L().Info("website context enabled")
	}

	generator := report.NewGenerator(completer, templates, report.GeneratorConfig{
		Model:         modelID,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		StripMarkdown: cfg.LLM.StripMarkdown,
	}, website)

	storage := supabase.NewStorage(cfg.Storage.URL, cfg.Storage.Key)

	composer := report.NewComposer(templates, report.EmailSettings{
		From:       cfg.Email.From,
		Subject:    cfg.Email.Subject,
		SenderName: cfg.Email.SenderName,
		LogoURL:    cfg.Email.LogoURL,
	})

	recorders, err := initRecorders()
	if err != nil {
		return nil, err
	}

	p := report.New(
		report.NewRegistrar(crm, cfg.CRM.ContactTag, cfg.CRM.StrictContact),
		generator,
		document.NewRenderer(
			document.WithAuthor(cfg.Email.SenderName),
			document.WithPageSize(cfg.Report.PageSize),
		),
		report.NewPublisher(storage, cfg.Storage.Bucket),
		composer,
		initNotifier(crm),
		report.WithKeyMode(cfg.Report.KeyMode),
		report.WithRecorders(recorders...),
	)

	zap.L().Info("pipeline ready",
		zap.String("provider", completer.Provider()),
		zap.String("model", modelID),
		zap.String("email_channel", cfg.Email.Channel),
		zap.String("key_mode", cfg.Report.KeyMode),
		zap.Int("recorders", len(recorders)),
	)
	return p, nil
}

func initCompleter() (report.Completer, string) {
	if cfg.LLM.Provider == "anthropic" {
		return report.NewAnthropicCompleter(anthropicpkg.NewClient(cfg.Anthropic.Key, cfg.Anthropic.BaseURL)), cfg.Anthropic.Model
	}
	return report.NewOpenAICompleter(openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.LLM.Model),
		openai.WithOrganization(cfg.OpenAI.Organization),
	)), cfg.LLM.Model
}

func initNotifier(crm ghl.Client) report.Notifier {
	if cfg.Email.Channel == "smtp" {
		s := cfg.Email.SMTP
		return report.NewSMTPNotifier(report.NewSMTPDialer(s.Host, s.Port, s.Username, s.Password))
	}
	return report.NewCRMNotifier(crm)
}

func initRecorders() ([]report.Recorder, error) {
	var recorders []report.Recorder

	if cfg.Notion.LedgerDB != "" {
		recorders = append(recorders, report.NewNotionLedger(notion.NewClient(cfg.Notion.Token), cfg.Notion.LedgerDB))
	} else {
		zap.L().Debug("REPORT_NOTION_LEDGER_DB not set, report ledger disabled")
	}

	if cfg.Salesforce.Enabled {
		sf, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, report.NewSalesforceMirror(sf, cfg.Salesforce.LeadSource))
	}

	return recorders, nil
}
