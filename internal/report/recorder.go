package report

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/notion"
	"github.com/sells-group/opportunity-report/pkg/salesforce"
)

// Recorder observes a delivered report. Recorder errors are logged by the
// pipeline and never change the run outcome.
type Recorder interface {
	Name() string
	Record(ctx context.Context, run *model.RunResult) error
}

// NotionLedger writes one ledger page per delivered report.
type NotionLedger struct {
	client notion.Client
	dbID   string
}

// NewNotionLedger creates a NotionLedger for database dbID.
func NewNotionLedger(client notion.Client, dbID string) *NotionLedger {
	return &NotionLedger{client: client, dbID: dbID}
}

// Name implements Recorder.
func (l *NotionLedger) Name() string { return "notion_ledger" }

// Record implements Recorder.
func (l *NotionLedger) Record(ctx context.Context, run *model.RunResult) error {
	entry := notion.LedgerEntry{
		RunID:        run.RunID,
		BusinessName: run.Submission.BusinessName,
		BusinessType: run.Submission.BusinessType,
		Email:        run.Submission.Email,
		Phone:        run.Submission.Phone,
		Website:      run.Submission.WebsiteLink,
		Status:       "Delivered",
		DeliveredAt:  run.FinishedAt,
	}
	if run.File != nil {
		entry.ReportURL = run.File.PublicURL
	}
	if run.Contact != nil {
		entry.ContactID = run.Contact.ID
	}

	_, err := notion.RecordReport(ctx, l.client, l.dbID, entry)
	return err
}

// SalesforceMirror upserts a Lead for every delivered report.
type SalesforceMirror struct {
	client     salesforce.Client
	leadSource string
}

// NewSalesforceMirror creates a SalesforceMirror.
func NewSalesforceMirror(client salesforce.Client, leadSource string) *SalesforceMirror {
	return &SalesforceMirror{client: client, leadSource: leadSource}
}

// Name implements Recorder.
func (m *SalesforceMirror) Name() string { return "salesforce_mirror" }

// Record implements Recorder.
func (m *SalesforceMirror) Record(ctx context.Context, run *model.RunResult) error {
	fields := leadFields(run, m.leadSource)
	id, err := salesforce.UpsertLead(ctx, m.client, fields)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("report: mirror lead for run %s", run.RunID))
	}
	zap.L().Info("report: lead mirrored",
		zap.String("run_id", run.RunID),
		zap.String("lead_id", id),
	)
	return nil
}

// leadFields maps a run to Lead fields. Salesforce requires LastName and
// Company, so the first name and a placeholder company stand in when blank.
func leadFields(run *model.RunResult, leadSource string) map[string]any {
	f := run.Submission
	last := f.LastName
	if last == "" {
		last = f.FirstName
	}
	fields := map[string]any{
		"FirstName": f.FirstName,
		"LastName":  last,
		"Email":     f.Email,
		"Phone":     f.Phone,
		"Company":   orNA(f.BusinessName),
	}
	if f.BusinessType != "" {
		fields["Industry"] = f.BusinessType
	}
	if f.WebsiteLink != "" {
		fields["Website"] = f.WebsiteLink
	}
	if leadSource != "" {
		fields["LeadSource"] = leadSource
	}
	if run.File != nil {
		fields["Description"] = "AI Opportunity Report: " + run.File.PublicURL
	}
	return fields
}
