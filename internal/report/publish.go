package report

import (
	"context"

	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/pkg/supabase"
)

// PDFContentType is stored with every report object.
const PDFContentType = "application/pdf"

// Publisher uploads rendered reports to a public bucket.
type Publisher struct {
	storage supabase.Storage
	bucket  string
}

// NewPublisher creates a Publisher for bucket.
func NewPublisher(storage supabase.Storage, bucket string) *Publisher {
	return &Publisher{storage: storage, bucket: bucket}
}

// Publish uploads doc under key, overwriting any existing object, and
// returns its public URL. The URL is the only one used downstream.
func (p *Publisher) Publish(ctx context.Context, key string, doc *model.ReportDocument) (*model.StoredReportFile, error) {
	_, err := p.storage.Upload(ctx, p.bucket, key, doc.Content, supabase.UploadOptions{
		ContentType: PDFContentType,
		Upsert:      true,
	})
	if err != nil {
		return nil, upstream(StepPublish, err.Error(), err)
	}

	return &model.StoredReportFile{
		Bucket:    p.bucket,
		Key:       key,
		PublicURL: p.storage.PublicURL(p.bucket, key),
	}, nil
}
