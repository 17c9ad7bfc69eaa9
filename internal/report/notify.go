package report

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/ghl"
)

// EmailFailedPrefix starts the client message for a failed delivery.
const EmailFailedPrefix = "Failed to send email: "

// Notifier delivers the report email.
type Notifier interface {
	Send(ctx context.Context, email model.OutboundEmail) error
}

// EmailSettings are the fixed sender-side email fields.
type EmailSettings struct {
	From       string
	Subject    string
	SenderName string
	LogoURL    string
}

// Composer builds the report email from the templates.
type Composer struct {
	templates *Templates
	settings  EmailSettings
}

// NewComposer creates a Composer.
func NewComposer(templates *Templates, settings EmailSettings) *Composer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Composer{templates: templates, settings: settings}
}

// Compose builds the email for a contact. The report is referenced by URL,
// never attached as bytes.
func (c *Composer) Compose(contactID string, form model.FormSubmission, reportURL string) (*model.OutboundEmail, error) {
	body, err := c.templates.RenderEmail(EmailData{
		FirstName:  form.FirstName,
		SenderName: c.settings.SenderName,
		LogoURL:    c.settings.LogoURL,
		ReportURL:  reportURL,
	})
	if err != nil {
		return nil, err
	}

	return &model.OutboundEmail{
		ContactID:   contactID,
		To:          form.Email,
		From:        c.settings.From,
		Subject:     c.settings.Subject,
		HTML:        body,
		Attachments: []string{reportURL},
	}, nil
}

// CRMNotifier sends email through the CRM conversations API.
type CRMNotifier struct {
	crm ghl.Client
}

// NewCRMNotifier creates a CRMNotifier.
func NewCRMNotifier(crm ghl.Client) *CRMNotifier {
	return &CRMNotifier{crm: crm}
}

// Send posts one Email-type message to the contact's conversation.
func (n *CRMNotifier) Send(ctx context.Context, email model.OutboundEmail) error {
	resp, err := n.crm.SendMessage(ctx, ghl.MessageRequest{
		Type:        "Email",
		ContactID:   email.ContactID,
		Subject:     email.Subject,
		HTML:        email.HTML,
		To:          email.To,
		From:        email.From,
		Attachments: email.Attachments,
	})
	if err != nil {
		return upstream(StepNotify, EmailFailedPrefix+upstreamMessage(err), err)
	}
	zap.L().Debug("report: crm message queued",
		zap.String("conversation_id", resp.ConversationID),
		zap.String("message_id", resp.MessageID),
	)
	return nil
}

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends the same email directly over SMTP.
type SMTPNotifier struct {
	sender MailSender
}

// NewSMTPNotifier creates an SMTPNotifier.
func NewSMTPNotifier(sender MailSender) *SMTPNotifier {
	return &SMTPNotifier{sender: sender}
}

// NewSMTPDialer creates a gomail dialer for the relay.
func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// Send delivers the message. gomail has no context support, so ctx is only
// checked before dialing.
func (n *SMTPNotifier) Send(ctx context.Context, email model.OutboundEmail) error {
	if err := ctx.Err(); err != nil {
		return upstream(StepNotify, EmailFailedPrefix+err.Error(), err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", email.From)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/html", email.HTML)

	if err := n.sender.DialAndSend(m); err != nil {
		err = eris.Wrap(err, "smtp: send")
		return upstream(StepNotify, EmailFailedPrefix+eris.Cause(err).Error(), err)
	}
	return nil
}
