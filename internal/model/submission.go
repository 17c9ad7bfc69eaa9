package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// FormSubmission is the lead-capture form posted to the generate endpoint.
type FormSubmission struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	BusinessName string `json:"businessName,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
	WebsiteLink  string `json:"websiteLink,omitempty"`
}

// UnmarshalJSON accepts phone as a JSON string or a bare number, since
// existing form embeds post it both ways.
func (f *FormSubmission) UnmarshalJSON(data []byte) error {
	type plain FormSubmission
	aux := struct {
		*plain
		Phone json.RawMessage `json:"phone"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	phone, err := decodePhone(aux.Phone)
	if err != nil {
		return err
	}
	f.Phone = phone
	return nil
}

func decodePhone(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", eris.Wrap(err, "model: decode phone")
		}
		return s, nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", eris.Wrap(err, "model: decode phone")
		}
		return n.String(), nil
	default:
		return "", eris.Errorf("model: phone must be a string or number, got %s", raw)
	}
}

// FullName joins first and last name, dropping the gap when one is empty.
func (f FormSubmission) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName))
}

// Contact is the CRM record created for a submission.
type Contact struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Phone string   `json:"phone"`
	Tags  []string `json:"tags,omitempty"`
}
