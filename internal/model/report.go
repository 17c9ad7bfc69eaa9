package model

// GeneratedReport is the LLM-drafted report text for one submission.
type GeneratedReport struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// ReportDocument is a rendered PDF held in memory.
type ReportDocument struct {
	Content []byte `json:"-"`
	Pages   int    `json:"pages"`
}

// Size returns the PDF length in bytes.
func (d ReportDocument) Size() int {
	return len(d.Content)
}

// StoredReportFile is a published report in object storage.
type StoredReportFile struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

// OutboundEmail is the report delivery message.
type OutboundEmail struct {
	ContactID   string   `json:"contact_id,omitempty"`
	To          string   `json:"to"`
	From        string   `json:"from,omitempty"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html"`
	Attachments []string `json:"attachments"`
}
