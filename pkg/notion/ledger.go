package notion

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// LedgerEntry is one delivered report, as recorded in the ledger database.
type LedgerEntry struct {
	RunID        string
	BusinessName string
	BusinessType string
	Email        string
	Phone        string
	Website      string
	ReportURL    string
	ContactID    string
	Status       string
	DeliveredAt  time.Time
}

// RecordReport creates a page for entry in the database dbID.
// Empty optional columns are omitted so Notion keeps them blank.
func RecordReport(ctx context.Context, c Client, dbID string, entry LedgerEntry) (string, error) {
	if dbID == "" {
		return "", eris.New("notion: ledger database id is required")
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: buildLedgerProperties(entry),
	})
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("notion: record report %s", entry.RunID))
	}
	return string(page.ID), nil
}

func buildLedgerProperties(entry LedgerEntry) notionapi.Properties {
	name := entry.BusinessName
	if name == "" {
		name = entry.Email
	}

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(name),
		},
		"Run ID": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(entry.RunID),
		},
		"Email": notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: entry.Email,
		},
	}

	if entry.Status != "" {
		props["Status"] = notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: entry.Status},
		}
	}
	if entry.BusinessType != "" {
		props["Business Type"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(entry.BusinessType),
		}
	}
	if entry.Phone != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: entry.Phone,
		}
	}
	if entry.Website != "" {
		props["Website"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  entry.Website,
		}
	}
	if entry.ReportURL != "" {
		props["Report"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  entry.ReportURL,
		}
	}
	if entry.ContactID != "" {
		props["Contact ID"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(entry.ContactID),
		}
	}
	if !entry.DeliveredAt.IsZero() {
		at := notionapi.Date(entry.DeliveredAt)
		props["Delivered"] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &at},
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
