package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is the subset of the Salesforce Lead object the mirror reads back.
type Lead struct {
	ID       string `json:"Id" salesforce:"Id"`
	Email    string `json:"Email" salesforce:"Email"`
	Company  string `json:"Company" salesforce:"Company"`
	LastName string `json:"LastName" salesforce:"LastName"`
	Status   string `json:"Status" salesforce:"Status"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{"Id", "Email", "Company", "LastName", "Status"}

// FindLeadByEmail queries Salesforce for a Lead with the given email.
// Returns nil if no lead is found.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' ORDER BY CreatedDate DESC LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by email %s", email))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the Lead matching fields["Email"] or inserts a new one.
// LastName and Company are required by Salesforce on insert.
func UpsertLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	email, _ := fields["Email"].(string)
	if email == "" {
		return "", eris.New("sf: lead email is required")
	}

	existing, err := FindLeadByEmail(ctx, c, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
			return "", eris.Wrap(err, fmt.Sprintf("sf: update lead %s", existing.ID))
		}
		return existing.ID, nil
	}

	for _, k := range []string{"LastName", "Company"} {
		if v, _ := fields[k].(string); v == "" {
			return "", eris.New(fmt.Sprintf("sf: lead %s is required", k))
		}
	}

	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
