// Package report implements the opportunity report pipeline: validate the
// form, register the CRM contact, draft the report, render and publish the
// PDF, then email the link.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/document"
	"github.com/sells-group/opportunity-report/internal/model"
)

// Step names, in execution order.
const (
	StepValidate        = "validate"
	StepRegisterContact = "register_contact"
	StepGenerateReport  = "generate_report"
	StepRenderPDF       = "render_pdf"
	StepPublish         = "publish"
	StepNotify          = "notify"
)

// ContactRegistrar creates the CRM contact.
type ContactRegistrar interface {
	Register(ctx context.Context, form model.FormSubmission) (*model.Contact, error)
}

// ReportGenerator drafts the report text.
type ReportGenerator interface {
	Generate(ctx context.Context, form model.FormSubmission) (*model.GeneratedReport, error)
}

// DocumentRenderer turns report text into a PDF.
type DocumentRenderer interface {
	Render(text string, meta document.Metadata) (*model.ReportDocument, error)
}

// ReportPublisher stores the PDF and returns its public location.
type ReportPublisher interface {
	Publish(ctx context.Context, key string, doc *model.ReportDocument) (*model.StoredReportFile, error)
}

// EmailComposer builds the delivery email.
type EmailComposer interface {
	Compose(contactID string, form model.FormSubmission, reportURL string) (*model.OutboundEmail, error)
}

// Pipeline runs one submission through every step in order. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	contacts  ContactRegistrar
	generator ReportGenerator
	renderer  DocumentRenderer
	publisher ReportPublisher
	composer  EmailComposer
	notifier  Notifier
	keyMode   string
	recorders []Recorder
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithKeyMode selects the storage key mode (business_name or timestamp).
func WithKeyMode(mode string) Option {
	return func(p *Pipeline) {
		if mode != "" {
			p.keyMode = mode
		}
	}
}

// WithRecorders adds post-delivery recorders.
func WithRecorders(r ...Recorder) Option {
	return func(p *Pipeline) {
		p.recorders = append(p.recorders, r...)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// New creates a Pipeline with all dependencies.
func New(
	contacts ContactRegistrar,
	generator ReportGenerator,
	renderer DocumentRenderer,
	publisher ReportPublisher,
	composer EmailComposer,
	notifier Notifier,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		contacts:  contacts,
		generator: generator,
		renderer:  renderer,
		publisher: publisher,
		composer:  composer,
		notifier:  notifier,
		keyMode:   KeyModeBusinessName,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the pipeline for one submission. The returned RunResult is
// always non-nil and records every step that ran. The error is a
// *ValidationError or *UpstreamError. A failure after contact registration
// leaves earlier side effects in place.
func (p *Pipeline) Run(ctx context.Context, form model.FormSubmission) (*model.RunResult, error) {
	result := &model.RunResult{
		RunID:      p.newID(),
		Submission: form,
		StartedAt:  p.now(),
	}
	log := zap.L().With(zap.String("run_id", result.RunID))

	finish := func(status model.RunStatus, err error) (*model.RunResult, error) {
		result.Status = status
		result.FinishedAt = p.now()
		if err != nil {
			result.Error = err.Error()
		}
		runsTotal.WithLabelValues(string(status)).Inc()
		log.Info("report: run finished",
			zap.String("status", string(status)),
			zap.Int64("duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds()),
		)
		return result, err
	}

	trackStep := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, err := fn()
		elapsed := time.Since(start)

		step := model.StepResult{
			Name:     name,
			Duration: elapsed.Milliseconds(),
			Metadata: meta,
		}
		if err != nil {
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			fields := []zap.Field{
				zap.String("step", name),
				zap.Int64("duration_ms", step.Duration),
				zap.Error(err),
			}
			var ue *UpstreamError
			if errors.As(err, &ue) && ue.Err != nil {
				fields = append(fields, zap.NamedError("upstream", ue.Err))
			}
			log.Error("report: step failed", fields...)
		} else {
			step.Status = model.StepStatusComplete
			log.Info("report: step complete",
				zap.String("step", name),
				zap.Int64("duration_ms", step.Duration),
			)
		}
		stepDuration.WithLabelValues(name, string(step.Status)).Observe(elapsed.Seconds())
		result.Steps = append(result.Steps, step)
		return err
	}

	// Validate
	var validated model.FormSubmission
	if err := trackStep(StepValidate, func() (map[string]any, error) {
		var err error
		validated, err = Validate(form)
		return nil, err
	}); err != nil {
		return finish(model.RunStatusRejected, err)
	}
	form = validated
	result.Submission = form
	log = log.With(zap.String("business", form.BusinessName))

	// Register contact
	if err := trackStep(StepRegisterContact, func() (map[string]any, error) {
		c, err := p.contacts.Register(ctx, form)
		if err != nil {
			return nil, err
		}
		result.Contact = c
		return map[string]any{"contact_id": c.ID}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Generate report
	if err := trackStep(StepGenerateReport, func() (map[string]any, error) {
		r, err := p.generator.Generate(ctx, form)
		if err != nil {
			return nil, err
		}
		result.Report = r
		return map[string]any{
			"provider":      r.Provider,
			"model":         r.Model,
			"input_tokens":  r.InputTokens,
			"output_tokens": r.OutputTokens,
			"chars":         len(r.Text),
		}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Render PDF
	var doc *model.ReportDocument
	if err := trackStep(StepRenderPDF, func() (map[string]any, error) {
		d, err := p.renderer.Render(result.Report.Text, document.Metadata{
			BusinessName: form.BusinessName,
			BusinessType: form.BusinessType,
			Website:      form.WebsiteLink,
		})
		if err != nil {
			return nil, upstream(StepRenderPDF, err.Error(), err)
		}
		doc = d
		return map[string]any{"bytes": d.Size(), "pages": d.Pages}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Publish
	if err := trackStep(StepPublish, func() (map[string]any, error) {
		key := StorageKey(p.keyMode, form.BusinessName, p.now())
		f, err := p.publisher.Publish(ctx, key, doc)
		if err != nil {
			return map[string]any{"key": key}, err
		}
		result.File = f
		return map[string]any{"key": f.Key, "url": f.PublicURL}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Notify
	if err := trackStep(StepNotify, func() (map[string]any, error) {
		email, err := p.composer.Compose(result.Contact.ID, form, result.File.PublicURL)
		if err != nil {
			return nil, upstream(StepNotify, EmailFailedPrefix+err.Error(), err)
		}
		result.Email = email
		if err := p.notifier.Send(ctx, *email); err != nil {
			return nil, err
		}
		return map[string]any{"to": email.To}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	p.record(ctx, log, result)
	return finish(model.RunStatusComplete, nil)
}

// record runs every recorder. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, log *zap.Logger, result *model.RunResult) {
	result.FinishedAt = p.now()
	for _, r := range p.recorders {
		if err := r.Record(ctx, result); err != nil {
			recorderErrors.WithLabelValues(r.Name()).Inc()
			log.Warn("report: recorder failed",
				zap.String("recorder", r.Name()),
				zap.Error(err),
			)
		}
	}
}
