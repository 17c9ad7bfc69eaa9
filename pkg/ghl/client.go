// Package ghl provides a client for the GoHighLevel contacts and
// conversations APIs.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL          = "https://rest.gohighlevel.com/v1"
	defaultConversationsURL = "https://services.leadconnectorhq.com"
	defaultAPIVersion       = "2021-07-28"

	// DefaultTimeout bounds each request made with the default http.Client.
	DefaultTimeout = 30 * time.Second
)

// Client defines the GoHighLevel operations used by the report pipeline.
type Client interface {
	// CreateContact registers a contact using the location API key.
	CreateContact(ctx context.Context, req ContactRequest) (*ContactResponse, error)
	// SendMessage sends a message through the conversations API using the
	// conversations token.
	SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// ContactRequest is the body for POST /contacts/.
type ContactRequest struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Tags  []string `json:"tags"`
}

// ContactResponse wraps the created contact.
type ContactResponse struct {
	Contact Contact `json:"contact"`
}

// Contact is a GoHighLevel contact record.
type Contact struct {
	ID         string   `json:"id"`
	LocationID string   `json:"locationId,omitempty"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Name       string   `json:"name,omitempty"`
	Phone      string   `json:"phone"`
	Tags       []string `json:"tags"`
}

// MessageRequest is the body for POST /conversations/messages.
type MessageRequest struct {
	Type        string   `json:"type"`
	ContactID   string   `json:"contactId"`
	Subject     string   `json:"subject,omitempty"`
	HTML        string   `json:"html,omitempty"`
	Message     string   `json:"message,omitempty"`
	To          string   `json:"to,omitempty"`
	From        string   `json:"from,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// MessageResponse is returned by the conversations API.
type MessageResponse struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	Msg            string `json:"msg,omitempty"`
}

// StatusError is returned when GoHighLevel answers with a non-2xx status.
// Body holds the raw response so callers can log or inspect it.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ghl: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ghl: %s: unexpected status %d: %s", e.Op, e.StatusCode, string(e.Body))
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the contacts API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithConversationsURL overrides the conversations API base URL.
func WithConversationsURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.conversationsURL = url
		}
	}
}

// WithAPIVersion overrides the Version header sent to the conversations API.
func WithAPIVersion(v string) Option {
	return func(c *httpClient) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey            string
	conversationToken string
	baseURL           string
	conversationsURL  string
	apiVersion        string
	http              *http.Client
}

// NewClient creates a GoHighLevel client. apiKey authenticates the contacts
// API; conversationToken authenticates the conversations API.
func NewClient(apiKey, conversationToken string, opts ...Option) Client {
	c := &httpClient{
		apiKey:            apiKey,
		conversationToken: conversationToken,
		baseURL:           defaultBaseURL,
		conversationsURL:  defaultConversationsURL,
		apiVersion:        defaultAPIVersion,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateContact(ctx context.Context, req ContactRequest) (*ContactResponse, error) {
	body, status, err := c.post(ctx, c.baseURL+"/contacts/", req, c.apiKey, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ghl: create contact")
	}
	if status < 200 || status >= 300 {
		return nil, newStatusError("create contact", status, body)
	}

	var result ContactResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ghl: unmarshal contact response")
	}
	return &result, nil
}

func (c *httpClient) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	headers := map[string]string{"Version": c.apiVersion}
	body, status, err := c.post(ctx, c.conversationsURL+"/conversations/messages", req, c.conversationToken, headers)
	if err != nil {
		return nil, eris.Wrap(err, "ghl: send message")
	}
	if status < 200 || status >= 300 {
		return nil, newStatusError("send message", status, body)
	}

	var result MessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ghl: unmarshal message response")
	}
	return &result, nil
}

func (c *httpClient) post(ctx context.Context, url string, payload any, token string, headers map[string]string) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "read response")
	}
	return body, resp.StatusCode, nil
}

// newStatusError extracts the "message" (or "msg") field GoHighLevel puts in
// its error bodies, keeping the raw body alongside.
func newStatusError(op string, status int, body []byte) *StatusError {
	var envelope struct {
		Message any    `json:"message"`
		Msg     string `json:"msg"`
	}
	se := &StatusError{Op: op, StatusCode: status, Body: body}
	if json.Unmarshal(body, &envelope) == nil {
		switch m := envelope.Message.(type) {
		case string:
			se.Message = m
		case []any:
			if len(m) > 0 {
				se.Message = fmt.Sprint(m[0])
			}
		}
		if se.Message == "" {
			se.Message = envelope.Msg
		}
	}
	return se
}
