package report

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/ghl"
)

// Registrar creates the CRM contact for a submission.
type Registrar struct {
	crm    ghl.Client
	tag    string
	strict bool
}

// NewRegistrar creates a Registrar that tags every contact with tag. When
// strict is false a contact the CRM rejects with a non-2xx status is logged
// and the run continues with an empty contact id. Transport and decode
// failures always fail the run.
func NewRegistrar(crm ghl.Client, tag string, strict bool) *Registrar {
	return &Registrar{crm: crm, tag: tag, strict: strict}
}

// Register sends one create-contact request.
func (r *Registrar) Register(ctx context.Context, form model.FormSubmission) (*model.Contact, error) {
	req := ghl.ContactRequest{
		Email: form.Email,
		Name:  form.FullName(),
		Phone: form.Phone,
	}
	if r.tag != "" {
		req.Tags = []string{r.tag}
	}

	resp, err := r.crm.CreateContact(ctx, req)
	if err != nil {
		var se *ghl.StatusError
		if !r.strict && errors.As(err, &se) {
			zap.L().Warn("report: contact registration failed, continuing without contact id",
				zap.String("email", form.Email),
				zap.Error(err),
			)
			return &model.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone, Tags: req.Tags}, nil
		}
		return nil, upstream(StepRegisterContact, upstreamMessage(err), err)
	}

	c := resp.Contact
	contact := &model.Contact{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Tags:  c.Tags,
	}
	if contact.Name == "" {
		contact.Name = req.Name
	}
	if contact.Email == "" {
		contact.Email = req.Email
	}
	return contact, nil
}

// upstreamMessage prefers the message a CRM put in its error body.
func upstreamMessage(err error) string {
	var se *ghl.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
