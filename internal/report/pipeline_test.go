package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-report/internal/document"
	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/ghl"
)

type harness struct {
	log      *callLog
	crm      *fakeCRM
	llm      *fakeLLM
	storage  *fakeStorage
	pipeline *Pipeline
}

func newHarness(t *testing.T, strict bool, opts ...Option) *harness {
	t.Helper()
	log := &callLog{}
	h := &harness{
		log:     log,
		crm:     &fakeCRM{log: log},
		llm:     &fakeLLM{log: log},
		storage: &fakeStorage{log: log},
	}

	opts = append([]Option{
		WithIDGenerator(func() string { return "run-1" }),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	}, opts...)

	h.pipeline = New(
		NewRegistrar(h.crm, "AI Opportunity Report", strict),
		NewGenerator(NewOpenAICompleter(h.llm), nil, GeneratorConfig{
			Model:         "gpt-4o",
			Temperature:   0.2,
			MaxTokens:     1500,
			StripMarkdown: true,
		}, nil),
		document.NewRenderer(),
		NewPublisher(h.storage, "reports"),
		NewComposer(nil, EmailSettings{
			From:       "reports@example.com",
			Subject:    "Your AI Business Report",
			SenderName: "Edwards",
		}),
		NewCRMNotifier(h.crm),
		opts...,
	)
	return h
}

func stepNamed(t *testing.T, result *model.RunResult, name string) model.StepResult {
	t.Helper()
	for _, s := range result.Steps {
		if s.Name == name {
			return s
		}
	}
	require.Failf(t, "step not recorded", "step %q", name)
	return model.StepResult{}
}

func exampleSubmission() model.FormSubmission {
	return model.FormSubmission{
		FirstName:    "John",
		Email:        "J@Test.com",
		Phone:        "1234567890",
		BusinessName: "Example Business",
		BusinessType: "Technology",
		WebsiteLink:  "https://example.com",
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.RunStatusComplete, result.Status)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, []string{callContactCreate, callCompletion, callUpload, callMessageSend}, h.log.list())

	// CRM receives the normalized email.
	require.Len(t, h.crm.contacts, 1)
	assert.Equal(t, "j@test.com", h.crm.contacts[0].Email)
	assert.Equal(t, "John", h.crm.contacts[0].Name)
	assert.Equal(t, []string{"AI Opportunity Report"}, h.crm.contacts[0].Tags)

	// Completion uses the fixed sampling parameters.
	require.Len(t, h.llm.requests, 1)
	req := h.llm.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.InDelta(t, 0.2, *req.Temperature, 0.0001)
	assert.Equal(t, 1500, *req.MaxTokens)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Business name: Example Business")

	// Report text is non-empty and stripped of * and #.
	require.NotNil(t, result.Report)
	assert.NotEmpty(t, result.Report.Text)
	assert.NotContains(t, result.Report.Text, "*")
	assert.NotContains(t, result.Report.Text, "#")

	// Upload: deterministic key, PDF bytes with the business name embedded.
	require.Len(t, h.storage.uploads, 1)
	up := h.storage.uploads[0]
	assert.Equal(t, "reports", up.bucket)
	assert.Equal(t, "Example_Business.pdf", up.path)
	assert.Equal(t, "application/pdf", up.opts.ContentType)
	assert.True(t, up.opts.Upsert)
	assert.True(t, bytes.HasPrefix(up.data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(up.data, []byte("Example Business")))

	// The message references the URL returned by the publish step.
	wantURL := "https://xyz.supabase.co/storage/v1/object/public/reports/Example_Business.pdf"
	require.Len(t, h.crm.messages, 1)
	msg := h.crm.messages[0]
	assert.Equal(t, "Email", msg.Type)
	assert.Equal(t, "c-123", msg.ContactID)
	assert.Equal(t, "j@test.com", msg.To)
	assert.Equal(t, "reports@example.com", msg.From)
	assert.Equal(t, "Your AI Business Report", msg.Subject)
	assert.Equal(t, []string{wantURL}, msg.Attachments)
	assert.Contains(t, msg.HTML, "Hello John,")
	assert.Contains(t, msg.HTML, "Edwards")
	assert.Equal(t, wantURL, result.File.PublicURL)

	names := make([]string, 0, len(result.Steps))
	for _, s := range result.Steps {
		names = append(names, s.Name)
		assert.Equal(t, model.StepStatusComplete, s.Status)
	}
	assert.Equal(t, []string{StepValidate, StepRegisterContact, StepGenerateReport, StepRenderPDF, StepPublish, StepNotify}, names)
}

func TestRun_MissingRequiredFieldsMakesNoCalls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		edit func(*model.FormSubmission)
	}{
		{"no email", func(f *model.FormSubmission) { f.Email = "" }},
		{"blank email", func(f *model.FormSubmission) { f.Email = "   " }},
		{"no phone", func(f *model.FormSubmission) { f.Phone = "" }},
		{"neither", func(f *model.FormSubmission) { f.Email, f.Phone = "", "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, true)
			form := exampleSubmission()
			tt.edit(&form)

			result, err := h.pipeline.Run(context.Background(), form)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
			assert.Equal(t, model.RunStatusRejected, result.Status)
			assert.Empty(t, h.log.list())
		})
	}
}

func TestRun_CompletionFailureStopsBeforeUpload(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.llm.err = errors.New("dial tcp: connection refused")

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)

	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, GenerateFailedMessage, ClientMessage(err))
	assert.NotContains(t, ClientMessage(err), "connection refused")
	assert.Equal(t, []string{callContactCreate, callCompletion}, h.log.list())
	assert.Empty(t, h.storage.uploads)
	assert.Empty(t, h.crm.messages)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Equal(t, model.StepStatusFailed, stepNamed(t, result, StepGenerateReport).Status)
}

// Storage failures leave the contact and the completion in place; nothing
// is compensated.
func TestRun_UploadFailureLeavesPartialState(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.storage.err = errors.New("supabase: upload reports/Example_Business.pdf: status 400: Bucket not found")

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)

	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Contains(t, ClientMessage(err), "Bucket not found")
	assert.Equal(t, []string{callContactCreate, callCompletion, callUpload}, h.log.list())
	assert.Len(t, h.crm.contacts, 1)
	assert.Len(t, h.llm.requests, 1)
	assert.Empty(t, h.crm.messages)

	require.NotNil(t, result.Contact)
	assert.Equal(t, "c-123", result.Contact.ID)
	assert.NotNil(t, result.Report)
	assert.Nil(t, result.File)
	assert.Equal(t, "Example_Business.pdf", stepNamed(t, result, StepPublish).Metadata["key"])
}

func TestRun_NotifyFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.crm.sendErr = &ghl.StatusError{Op: "send message", StatusCode: 401, Message: "Invalid JWT"}

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)

	assert.Equal(t, "Failed to send email: Invalid JWT", ClientMessage(err))
	assert.Len(t, h.storage.uploads, 1)
	assert.Equal(t, model.RunStatusFailed, result.Status)
	require.NotNil(t, result.Email)
}

func TestRun_ContactFailureStrict(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.crm.contactErr = &ghl.StatusError{Op: "create contact", StatusCode: 422, Message: "The email address is invalid."}

	_, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, StepRegisterContact, ue.Step)
	assert.Equal(t, "The email address is invalid.", ClientMessage(err))
	assert.Equal(t, []string{callContactCreate}, h.log.list())
}

func TestRun_ContactFailurePassThrough(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.crm.contactErr = &ghl.StatusError{Op: "create contact", StatusCode: 422, Message: "duplicate"}

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)

	assert.Equal(t, []string{callContactCreate, callCompletion, callUpload, callMessageSend}, h.log.list())
	require.Len(t, h.crm.messages, 1)
	assert.Empty(t, h.crm.messages[0].ContactID)
	assert.Empty(t, result.Contact.ID)
}

func TestRun_ContactTransportFailureFailsEvenWhenLenient(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.crm.contactErr = errors.New("ghl: create contact: send request: dial tcp 10.0.0.1:443: connect: connection refused")

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, StepRegisterContact, ue.Step)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, model.RunStatusFailed, result.Status)
	assert.Equal(t, []string{callContactCreate}, h.log.list())
}

func TestRun_SameBusinessNameOverwritesSameKey(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)

	_, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)
	_, err = h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)

	require.Len(t, h.storage.uploads, 2)
	assert.Equal(t, h.storage.uploads[0].path, h.storage.uploads[1].path)
	assert.True(t, h.storage.uploads[1].opts.Upsert)
}

func TestRun_TimestampKeyMode(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true, WithKeyMode(KeyModeTimestamp))

	_, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)
	assert.Equal(t, "Business_AI_Report_1700000000000.pdf", h.storage.uploads[0].path)
}

func TestRun_MissingBusinessNameFallsBackToTimestamp(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	form := exampleSubmission()
	form.BusinessName = ""

	_, err := h.pipeline.Run(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "Business_AI_Report_1700000000000.pdf", h.storage.uploads[0].path)
	assert.Contains(t, h.llm.requests[0].Messages[1].Content, "Business name: N/A")
}

func TestRun_DefaultsFirstName(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	form := exampleSubmission()
	form.FirstName = ""

	_, err := h.pipeline.Run(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, DefaultFirstName, h.crm.contacts[0].Name)
	assert.Contains(t, h.crm.messages[0].HTML, "Hello Friend,")
}

func TestRun_RenderFailure(t *testing.T) {
	t.Parallel()
	log := &callLog{}
	crm := &fakeCRM{log: log}
	storage := &fakeStorage{log: log}
	renderer := &fakeRenderer{err: errors.New("document: render pdf: font not found")}

	p := New(
		NewRegistrar(crm, "", true),
		NewGenerator(NewOpenAICompleter(&fakeLLM{log: log}), nil, GeneratorConfig{Model: "gpt-4o"}, nil),
		renderer,
		NewPublisher(storage, "reports"),
		NewComposer(nil, EmailSettings{}),
		NewCRMNotifier(crm),
	)

	result, err := p.Run(context.Background(), exampleSubmission())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Empty(t, storage.uploads)
	assert.Equal(t, model.StepStatusFailed, stepNamed(t, result, StepRenderPDF).Status)
	require.Len(t, renderer.metas, 1)
	assert.Equal(t, "Example Business", renderer.metas[0].BusinessName)
}

func TestRun_RecordersRunAfterDelivery(t *testing.T) {
	t.Parallel()
	ok := &fakeRecorder{name: "ok"}
	broken := &fakeRecorder{name: "broken", err: errors.New("notion: create page: 502")}
	h := newHarness(t, true, WithRecorders(broken, ok))

	result, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, result.Status)
	require.Len(t, ok.runs, 1)
	require.Len(t, broken.runs, 1)
	assert.Equal(t, "run-1", ok.runs[0].RunID)
	assert.NotNil(t, ok.runs[0].File)
}

func TestRun_RecordersSkippedOnFailure(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{name: "ledger"}
	h := newHarness(t, true, WithRecorders(rec))
	h.crm.sendErr = errors.New("timeout")

	_, err := h.pipeline.Run(context.Background(), exampleSubmission())
	require.Error(t, err)
	assert.Empty(t, rec.runs)
}
