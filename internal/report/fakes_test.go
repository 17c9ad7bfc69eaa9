package report

import (
	"context"
	"sync"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"
	"gopkg.in/gomail.v2"

	"github.com/sells-group/opportunity-report/internal/document"
	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/anthropic"
	"github.com/sells-group/opportunity-report/pkg/ghl"
	"github.com/sells-group/opportunity-report/pkg/notion"
	"github.com/sells-group/opportunity-report/pkg/openai"
	"github.com/sells-group/opportunity-report/pkg/salesforce"
	"github.com/sells-group/opportunity-report/pkg/supabase"
)

// Outbound call names recorded by the fakes.
const (
	callContactCreate = "contact-create"
	callCompletion    = "completion-request"
	callUpload        = "storage-upload"
	callMessageSend   = "message-send"
)

// callLog records outbound calls across fakes in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// --- CRM fake ---

type fakeCRM struct {
	log        *callLog
	contactErr error
	sendErr    error
	contacts   []ghl.ContactRequest
	messages   []ghl.MessageRequest
}

func (f *fakeCRM) CreateContact(_ context.Context, req ghl.ContactRequest) (*ghl.ContactResponse, error) {
	f.log.add(callContactCreate)
	f.contacts = append(f.contacts, req)
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return &ghl.ContactResponse{Contact: ghl.Contact{
		ID:    "c-123",
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
		Tags:  req.Tags,
	}}, nil
}

func (f *fakeCRM) SendMessage(_ context.Context, req ghl.MessageRequest) (*ghl.MessageResponse, error) {
	f.log.add(callMessageSend)
	f.messages = append(f.messages, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &ghl.MessageResponse{ConversationID: "conv-1", MessageID: "msg-1"}, nil
}

// --- LLM fake ---

type fakeLLM struct {
	log      *callLog
	err      error
	text     string
	requests []openai.ChatCompletionRequest
}

func (f *fakeLLM) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.log.add(callCompletion)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	text := f.text
	if text == "" {
		text = "# Your AI Opportunity Report\n**Introduction**\nAI is changing local business."
	}
	return &openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-2024-08-06",
		Choices: []openai.Choice{
			{Message: openai.Message{Role: "assistant", Content: text}, FinishReason: "stop"},
		},
		Usage: openai.Usage{PromptTokens: 700, CompletionTokens: 900, TotalTokens: 1600},
	}, nil
}

// --- Storage fake ---

type upload struct {
	bucket string
	path   string
	data   []byte
	opts   supabase.UploadOptions
}

type fakeStorage struct {
	log     *callLog
	err     error
	uploads []upload
}

func (f *fakeStorage) Upload(_ context.Context, bucket, path string, data []byte, opts supabase.UploadOptions) (*supabase.UploadResponse, error) {
	f.log.add(callUpload)
	f.uploads = append(f.uploads, upload{bucket: bucket, path: path, data: data, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	return &supabase.UploadResponse{Key: bucket + "/" + path}, nil
}

func (f *fakeStorage) PublicURL(bucket, path string) string {
	return "https://xyz.supabase.co/storage/v1/object/public/" + bucket + "/" + path
}

// --- Renderer fake ---

type fakeRenderer struct {
	err   error
	texts []string
	metas []document.Metadata
}

func (f *fakeRenderer) Render(text string, meta document.Metadata) (*model.ReportDocument, error) {
	f.texts = append(f.texts, text)
	f.metas = append(f.metas, meta)
	if f.err != nil {
		return nil, f.err
	}
	return &model.ReportDocument{Content: []byte("%PDF-1.3 fake"), Pages: 1}, nil
}

// --- Recorder fake ---

type fakeRecorder struct {
	name string
	err  error
	runs []*model.RunResult
}

func (f *fakeRecorder) Name() string { return f.name }

func (f *fakeRecorder) Record(_ context.Context, run *model.RunResult) error {
	f.runs = append(f.runs, run)
	return f.err
}

// --- Website fake ---

type fakeWebsite struct {
	text string
	err  error
	urls []string
}

func (f *fakeWebsite) Read(_ context.Context, rawURL string) (string, error) {
	f.urls = append(f.urls, rawURL)
	return f.text, f.err
}

// --- testify mocks ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

type mockSalesforceClient struct {
	mock.Mock
}

func (m *mockSalesforceClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSalesforceClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}

func (m *mockSalesforceClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	args := m.Called(ctx, sObjectName, id, fields)
	return args.Error(0)
}

type mockMailSender struct {
	mock.Mock
}

func (m *mockMailSender) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

var (
	_ ghl.Client        = (*fakeCRM)(nil)
	_ openai.Client     = (*fakeLLM)(nil)
	_ supabase.Storage  = (*fakeStorage)(nil)
	_ DocumentRenderer  = (*fakeRenderer)(nil)
	_ Recorder          = (*fakeRecorder)(nil)
	_ WebsiteReader     = (*fakeWebsite)(nil)
	_ anthropic.Client  = (*mockAnthropicClient)(nil)
	_ notion.Client     = (*mockNotionClient)(nil)
	_ salesforce.Client = (*mockSalesforceClient)(nil)
	_ MailSender        = (*mockMailSender)(nil)
)
