package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-report/internal/model"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        model.FormSubmission
		wantField string
		wantMsg   string
		check     func(t *testing.T, out model.FormSubmission)
	}{
		{
			name: "normalizes email and trims",
			in:   model.FormSubmission{FirstName: " John ", Email: "  J@Test.COM ", Phone: " 1234567890 ", BusinessName: " Example Business "},
			check: func(t *testing.T, out model.FormSubmission) {
				assert.Equal(t, "John", out.FirstName)
				assert.Equal(t, "j@test.com", out.Email)
				assert.Equal(t, "1234567890", out.Phone)
				assert.Equal(t, "Example Business", out.BusinessName)
			},
		},
		{
			name: "defaults first name",
			in:   model.FormSubmission{Email: "a@b.co", Phone: "1"},
			check: func(t *testing.T, out model.FormSubmission) {
				assert.Equal(t, DefaultFirstName, out.FirstName)
				assert.Empty(t, out.LastName)
			},
		},
		{
			name:      "missing email",
			in:        model.FormSubmission{FirstName: "John", Phone: "1"},
			wantField: "email",
			wantMsg:   MissingFieldsMessage,
		},
		{
			name:      "missing phone",
			in:        model.FormSubmission{FirstName: "John", Email: "a@b.co", Phone: "  "},
			wantField: "phone",
			wantMsg:   MissingFieldsMessage,
		},
		{
			name:      "malformed email",
			in:        model.FormSubmission{Email: "not-an-email", Phone: "1"},
			wantField: "email",
			wantMsg:   "Invalid email address",
		},
		{
			name:      "display name form rejected",
			in:        model.FormSubmission{Email: "John <j@test.com>", Phone: "1"},
			wantField: "email",
			wantMsg:   "Invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := Validate(tt.in)
			if tt.wantField != "" {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.wantField, ve.Field)
				assert.Equal(t, tt.wantMsg, ve.Message)
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}
