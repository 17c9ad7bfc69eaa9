package report

import (
	"net/mail"
	"strings"

	"github.com/sells-group/opportunity-report/internal/model"
)

// DefaultFirstName greets leads who left the first name blank.
const DefaultFirstName = "Friend"

// MissingFieldsMessage is the 400 body for absent email or phone.
const MissingFieldsMessage = "Missing required fields"

// Validate trims the submission, fills defaults and normalizes the email.
// It returns a *ValidationError when email or phone is absent or the email
// cannot be parsed.
func Validate(f model.FormSubmission) (model.FormSubmission, error) {
	out := model.FormSubmission{
		FirstName:    strings.TrimSpace(f.FirstName),
		LastName:     strings.TrimSpace(f.LastName),
		Email:        strings.ToLower(strings.TrimSpace(f.Email)),
		Phone:        strings.TrimSpace(f.Phone),
		BusinessName: strings.TrimSpace(f.BusinessName),
		BusinessType: strings.TrimSpace(f.BusinessType),
		WebsiteLink:  strings.TrimSpace(f.WebsiteLink),
	}
	if out.FirstName == "" {
		out.FirstName = DefaultFirstName
	}

	if out.Email == "" {
		return out, &ValidationError{Field: "email", Message: MissingFieldsMessage}
	}
	if out.Phone == "" {
		return out, &ValidationError{Field: "phone", Message: MissingFieldsMessage}
	}

	addr, err := mail.ParseAddress(out.Email)
	if err != nil || addr.Address != out.Email {
		return out, &ValidationError{Field: "email", Message: "Invalid email address"}
	}

	return out, nil
}
