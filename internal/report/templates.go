package report

import (
	"bytes"
	htmltemplate "html/template"
	"os"
	"strings"
	texttemplate "text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is the fixed system role for report generation.
const DefaultSystemPrompt = "You are an expert AI risk analyst and business consultant."

const defaultPrompt = `You are an AI business advisor who specializes in helping small local businesses use AI to grow revenue, save time, and improve customer experience.
I will give you:

- The business name
- The business type
- The business website (if available)

Use this information to create a 100% tailored "AI Opportunity Report" for this business.
The report should be specific, clear, actionable, and realistic, written for a non-technical business owner with 1-50 employees.

Inputs:
Business name: {{.BusinessName}}
Business type: {{.BusinessType}}
Website: {{.Website}}
{{- if .WebsiteText}}

Website content (for context only):
{{.WebsiteText}}
{{- end}}

REPORT STRUCTURE:
1. Introduction
Explain what's happening in their market right now with AI.
Use plain language and give 2-3 examples of how businesses like theirs are already using AI.
Mention how fast AI adoption is growing (reference current data or trend percentages).
2. The Threats
Outline the key business risks and challenges if they ignore AI.
Include:
Competitors using AI to attract more customers
Clients expecting faster service, better communication, and 24/7 responsiveness
Time and cost pressures
The danger of losing local market share and lower business valuation
3. Why It's Hard for Small Businesses
Explain that small business owners rarely get practical help with AI.
Mention:
Most IT consultants focus on websites, not business growth
AI advice online is too technical
Business owners are too busy to learn new tools
Emphasize: this is not about tech, it's about smarter business operations.
4. Big Opportunities
Give 3-5 clear, realistic ideas for how this specific type of business could use AI.
Each idea should include:
The AI tool or approach (e.g. lead follow-up automation, customer service chat, scheduling, marketing, reporting)
The benefit (e.g. "turn missed calls into booked jobs", "free up 10 hours a week", "increase repeat business")
Use examples relevant to {{.BusinessType}}.
5. The Payoff
Explain what happens if they start small now.
Use bullet points and numbers where possible:
20-50% time savings
30-200% more leads from better marketing
Less stress for the team
Happier customers and higher business value
6. Call to Action
End with an encouraging paragraph.
Reinforce that they don't need to become an AI expert, they just need to start now.
Mention that you (the sender) can help them take the next steps if they want.

Tone:
Friendly and expert, not salesy
No jargon
Grade 6 reading level
Short paragraphs and bullet points
American English

Output:
Return as a full written report titled:
"Your AI Opportunity Report - For {{.BusinessName}}"
Use clear formatting with subheadings and spacing and dont include * or # in heading on points.
`

const defaultEmailHTML = `{{if .LogoURL}}<p><img src="{{.LogoURL}}" alt="{{.SenderName}}" style="max-width:200px"></p>
{{end}}<p>Hello {{.FirstName}},</p>
<p>Your personalized business report is attached to this email.</p>
<p><a href="{{.ReportURL}}">Download your AI Opportunity Report</a></p>
<p>Best regards,<br>{{.SenderName}}</p>
`

// Templates holds the prompt and email templates. Any field left empty in
// an override file keeps its default.
type Templates struct {
	System    string `yaml:"system"`
	Prompt    string `yaml:"prompt"`
	EmailHTML string `yaml:"email_html"`

	prompt *texttemplate.Template
	email  *htmltemplate.Template
}

// PromptData is the input to the prompt template.
type PromptData struct {
	BusinessName string
	BusinessType string
	Website      string
	WebsiteText  string
}

// EmailData is the input to the email template.
type EmailData struct {
	FirstName  string
	SenderName string
	LogoURL    string
	ReportURL  string
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() *Templates {
	t, err := newTemplates(Templates{})
	if err != nil {
		panic(err) // built-in templates are static
	}
	return t
}

// LoadTemplates reads overrides from a YAML file. An empty path returns the
// defaults.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read templates %s", path)
	}

	var overrides Templates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, eris.Wrapf(err, "report: parse templates %s", path)
	}
	return newTemplates(overrides)
}

func newTemplates(overrides Templates) (*Templates, error) {
	t := &Templates{
		System:    DefaultSystemPrompt,
		Prompt:    defaultPrompt,
		EmailHTML: defaultEmailHTML,
	}
	if strings.TrimSpace(overrides.System) != "" {
		t.System = overrides.System
	}
	if strings.TrimSpace(overrides.Prompt) != "" {
		t.Prompt = overrides.Prompt
	}
	if strings.TrimSpace(overrides.EmailHTML) != "" {
		t.EmailHTML = overrides.EmailHTML
	}

	var err error
	t.prompt, err = texttemplate.New("prompt").Option("missingkey=error").Parse(t.Prompt)
	if err != nil {
		return nil, eris.Wrap(err, "report: parse prompt template")
	}
	t.email, err = htmltemplate.New("email").Option("missingkey=error").Parse(t.EmailHTML)
	if err != nil {
		return nil, eris.Wrap(err, "report: parse email template")
	}
	return t, nil
}

// RenderPrompt fills the prompt template. Empty fields become "N/A".
func (t *Templates) RenderPrompt(data PromptData) (string, error) {
	data.BusinessName = orNA(data.BusinessName)
	data.BusinessType = orNA(data.BusinessType)
	data.Website = orNA(data.Website)

	var buf bytes.Buffer
	if err := t.prompt.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "report: render prompt")
	}
	return buf.String(), nil
}

// RenderEmail fills the email HTML template.
func (t *Templates) RenderEmail(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := t.email.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "report: render email")
	}
	return buf.String(), nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
