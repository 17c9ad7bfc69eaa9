package config

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	PublicDir          string   `yaml:"public_dir" mapstructure:"public_dir"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	ReadTimeoutSecs    int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs   int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CRMConfig holds GoHighLevel credentials and endpoints.
type CRMConfig struct {
	APIKey            string `yaml:"api_key" mapstructure:"api_key"`
	ConversationToken string `yaml:"conversation_token" mapstructure:"conversation_token"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	ConversationsURL  string `yaml:"conversations_url" mapstructure:"conversations_url"`
	APIVersion        string `yaml:"api_version" mapstructure:"api_version"`
	ContactTag        string `yaml:"contact_tag" mapstructure:"contact_tag"`
	// StrictContact fails the run when contact creation is rejected.
	// When false the error is logged and the run continues without a contact id.
	StrictContact bool `yaml:"strict_contact" mapstructure:"strict_contact"`
}

// LLMConfig selects the report provider and its sampling parameters.
type LLMConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"`
	Model         string  `yaml:"model" mapstructure:"model"`
	Temperature   float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens     int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	StripMarkdown bool    `yaml:"strip_markdown" mapstructure:"strip_markdown"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Organization string `yaml:"organization" mapstructure:"organization"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// StorageConfig holds Supabase Storage settings.
type StorageConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Key    string `yaml:"key" mapstructure:"key"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
}

// EmailConfig configures report delivery.
type EmailConfig struct {
	From       string     `yaml:"from" mapstructure:"from"`
	Subject    string     `yaml:"subject" mapstructure:"subject"`
	SenderName string     `yaml:"sender_name" mapstructure:"sender_name"`
	LogoURL    string     `yaml:"logo_url" mapstructure:"logo_url"`
	Channel    string     `yaml:"channel" mapstructure:"channel"`
	SMTP       SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
}

// SMTPConfig holds SMTP relay settings for the smtp channel.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ReportConfig configures report content and storage keys.
type ReportConfig struct {
	KeyMode            string `yaml:"key_mode" mapstructure:"key_mode"`
	FetchWebsite       bool   `yaml:"fetch_website" mapstructure:"fetch_website"`
	WebsiteTimeoutSecs int    `yaml:"website_timeout_secs" mapstructure:"website_timeout_secs"`
	TemplatesPath      string `yaml:"templates_path" mapstructure:"templates_path"`
	PageSize           string `yaml:"page_size" mapstructure:"page_size"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the lead mirror.
type SalesforceConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	ClientID   string  `yaml:"client_id" mapstructure:"client_id"`
	Username   string  `yaml:"username" mapstructure:"username"`
	KeyPath    string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string  `yaml:"login_url" mapstructure:"login_url"`
	LeadSource string  `yaml:"lead_source" mapstructure:"lead_source"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds Notion API credentials for the report ledger.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	LedgerDB string `yaml:"ledger_db" mapstructure:"ledger_db"`
}

// legacyEnv maps config keys to the unprefixed variable names used by
// existing deployments.
var legacyEnv = map[string]string{
	"server.port":            "PORT",
	"crm.api_key":            "GHL_API_KEY",
	"crm.conversation_token": "GHL_TOKEN",
	"openai.key":             "OPENAI_API_KEY",
	"anthropic.key":          "ANTHROPIC_API_KEY",
	"storage.url":            "SUPABASE_URL",
	"storage.key":            "SUPABASE_KEY",
	"email.from":             "EMAIL_FROM",
	"email.subject":          "EMAIL_SUBJECT",
}

// bindEnv registers REPORT_<KEY> (and any legacy name) for every leaf key of
// t. AutomaticEnv alone only resolves keys viper already knows about, so
// settings without a default would never be read from the environment.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := range t.NumField() {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			if err := bindEnv(v, f.Type, key); err != nil {
				return err
			}
			continue
		}
		names := []string{key, envName(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return eris.Wrap(err, "config: bind env "+key)
		}
	}
	return nil
}

// envName returns the prefixed variable for a config key, e.g.
// notion.ledger_db -> REPORT_NOTION_LEDGER_DB.
func envName(key string) string {
	return "REPORT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env (optional); existing environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.public_dir", "public")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 10)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 330)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("crm.base_url", "https://rest.gohighlevel.com/v1")
	v.SetDefault("crm.conversations_url", "https://services.leadconnectorhq.com")
	v.SetDefault("crm.api_version", "2021-07-28")
	v.SetDefault("crm.contact_tag", "AI Opportunity Report")
	v.SetDefault("crm.strict_contact", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.strip_markdown", true)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("storage.bucket", "reports")
	v.SetDefault("email.subject", "Your AI Business Report")
	v.SetDefault("email.sender_name", "Edwards")
	v.SetDefault("email.channel", "crm")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("report.key_mode", "business_name")
	v.SetDefault("report.fetch_website", false)
	v.SetDefault("report.website_timeout_secs", 10)
	v.SetDefault("report.page_size", "Letter")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_source", "AI Opportunity Report")
	v.SetDefault("salesforce.rate_limit", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode
// ("serve" or "generate") and reports every missing key at once.
func (c *Config) Validate(mode string) error {
	var missing []string
	require := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key+" is required")
		}
	}

	switch mode {
	case "serve", "generate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		missing = append(missing, "server.port must be between 1 and 65535")
	}

	require(c.CRM.APIKey, "crm.api_key")
	require(c.Storage.URL, "storage.url")
	require(c.Storage.Key, "storage.key")
	require(c.Storage.Bucket, "storage.bucket")

	switch c.LLM.Provider {
	case "openai":
		require(c.OpenAI.Key, "openai.key")
	case "anthropic":
		require(c.Anthropic.Key, "anthropic.key")
	default:
		missing = append(missing, "llm.provider must be openai or anthropic")
	}

	switch c.Email.Channel {
	case "crm":
		require(c.CRM.ConversationToken, "crm.conversation_token")
	case "smtp":
		require(c.Email.From, "email.from")
		require(c.Email.SMTP.Host, "email.smtp.host")
	default:
		missing = append(missing, "email.channel must be crm or smtp")
	}

	switch c.Report.KeyMode {
	case "business_name", "timestamp":
	default:
		missing = append(missing, "report.key_mode must be business_name or timestamp")
	}
	switch c.Report.PageSize {
	case "", "Letter", "Legal", "A4", "A5":
	default:
		missing = append(missing, "report.page_size must be Letter, Legal, A4 or A5")
	}

	if c.Salesforce.Enabled {
		require(c.Salesforce.ClientID, "salesforce.client_id")
		require(c.Salesforce.Username, "salesforce.username")
		require(c.Salesforce.KeyPath, "salesforce.key_path")
	}
	if c.Notion.LedgerDB != "" {
		require(c.Notion.Token, "notion.token")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
