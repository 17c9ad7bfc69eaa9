package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-report/internal/config"
	"github.com/sells-group/opportunity-report/internal/report"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 3000, ReadTimeoutSecs: 15, WriteTimeoutSecs: 180},
		CRM: config.CRMConfig{
			APIKey:            "ghl-key",
			ConversationToken: "ghl-token",
			BaseURL:           "https://rest.gohighlevel.com/v1",
			ConversationsURL:  "https://services.leadconnectorhq.com",
			APIVersion:        "2021-07-28",
			ContactTag:        "AI Opportunity Report",
			StrictContact:     true,
		},
		LLM: config.LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o",
			Temperature:   0.2,
			MaxTokens:     1500,
			StripMarkdown: true,
		},
		OpenAI:    config.OpenAIConfig{Key: "sk-test"},
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"},
		Storage:   config.StorageConfig{URL: "https://xyz.supabase.co", Key: "sb-key", Bucket: "reports"},
		Email: config.EmailConfig{
			Subject:    "Your AI Business Report",
			SenderName: "Edwards",
			Channel:    "crm",
		},
		Report: config.ReportConfig{KeyMode: "business_name", WebsiteTimeoutSecs: 10, PageSize: "A4"},
	}
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	cfg = &config.Config{}

	p, err := initPipeline("serve")
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crm.api_key is required")
}

func TestInitPipeline_Success(t *testing.T) {
	cfg = testConfig()
	cfg.Report.FetchWebsite = true

	p, err := initPipeline("generate")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestInitPipeline_TemplatesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system: You are terse.\n"), 0o644))

	cfg = testConfig()
	cfg.Report.TemplatesPath = path

	p, err := initPipeline("generate")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestInitPipeline_MissingTemplates(t *testing.T) {
	cfg = testConfig()
	cfg.Report.TemplatesPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := initPipeline("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load templates")
}

func TestInitPipeline_SalesforceKeyMissing(t *testing.T) {
	cfg = testConfig()
	cfg.Salesforce = config.SalesforceConfig{
		Enabled:  true,
		ClientID: "client",
		Username: "user@example.com",
		KeyPath:  filepath.Join(t.TempDir(), "missing.pem"),
		LoginURL: "https://login.salesforce.com",
	}

	_, err := initPipeline("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read salesforce JWT private key")
}

func TestInitCompleter(t *testing.T) {
	cfg = testConfig()
	c, modelID := initCompleter()
	assert.Equal(t, "openai", c.Provider())
	assert.Equal(t, "gpt-4o", modelID)

	cfg.LLM.Provider = "anthropic"
	cfg.Anthropic.Key = "ak-test"
	c, modelID = initCompleter()
	assert.Equal(t, "anthropic", c.Provider())
	assert.Equal(t, "claude-sonnet-4-5-20250929", modelID)
}

func TestInitNotifier(t *testing.T) {
	cfg = testConfig()
	assert.IsType(t, &report.CRMNotifier{}, initNotifier(nil))

	cfg.Email.Channel = "smtp"
	cfg.Email.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587}
	assert.IsType(t, &report.SMTPNotifier{}, initNotifier(nil))
}

func TestInitRecorders(t *testing.T) {
	cfg = testConfig()
	recorders, err := initRecorders()
	require.NoError(t, err)
	assert.Empty(t, recorders)

	cfg.Notion = config.NotionConfig{Token: "secret", LedgerDB: "db-ledger"}
	recorders, err = initRecorders()
	require.NoError(t, err)
	require.Len(t, recorders, 1)
	assert.Equal(t, "notion_ledger", recorders[0].Name())
}
