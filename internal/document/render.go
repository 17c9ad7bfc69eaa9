// Package document renders report text into PDF documents in memory.
package document

import (
	"bytes"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-report/internal/model"
)

// Title is printed at the top of every report.
const Title = "Business Analysis Report"

const (
	titleSize = 20
	metaSize  = 12
	bodySize  = 10
	fontName  = "Helvetica"
)

// Metadata is the form context printed above the report body.
type Metadata struct {
	BusinessName string
	BusinessType string
	Website      string
}

func (m Metadata) lines() []string {
	return []string{
		"Business Name: " + orNA(m.BusinessName),
		"Business Type: " + orNA(m.BusinessType),
		"Website: " + orNA(m.Website),
	}
}

// Renderer lays out reports with core PDF fonts. It has no I/O.
type Renderer struct {
	pageSize string
	author   string
	now      func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPageSize sets the page size ("A4", "Letter", ...). Default: Letter.
func WithPageSize(size string) Option {
	return func(r *Renderer) {
		if size != "" {
			r.pageSize = size
		}
	}
}

// WithAuthor sets the PDF author metadata.
func WithAuthor(author string) Option {
	return func(r *Renderer) {
		r.author = author
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		pageSize: "Letter",
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render lays out the title, the metadata block and the report text and
// returns the finished PDF. Body text overflows onto new pages automatically.
func (r *Renderer) Render(text string, meta Metadata) (*model.ReportDocument, error) {
	pdf := fpdf.New("P", "pt", r.pageSize, "")
	// Core fonts are cp1252; translate UTF-8 input before drawing.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetMargins(72, 72, 72)
	pdf.SetAutoPageBreak(true, 72)
	pdf.SetCreationDate(r.now())
	pdf.SetCatalogSort(true)
	pdf.SetCreator("opportunity-report", false)
	pdf.SetTitle(tr(Title+" - "+orNA(meta.BusinessName)), false)
	pdf.SetSubject(tr("AI Opportunity Report for "+orNA(meta.BusinessName)), false)
	pdf.SetKeywords(tr(strings.TrimSpace(meta.BusinessName+" "+meta.BusinessType)), false)
	if r.author != "" {
		pdf.SetAuthor(tr(r.author), false)
	}

	pdf.AddPage()

	pdf.SetFont(fontName, "B", titleSize)
	pdf.CellFormat(0, titleSize*1.2, Title, "", 1, "C", false, 0, "")
	pdf.Ln(titleSize * 2)

	pdf.SetFont(fontName, "", metaSize)
	for _, line := range meta.lines() {
		pdf.MultiCell(0, metaSize*1.2, tr(line), "", "L", false)
	}
	pdf.Ln(metaSize * 2)

	if body := normalizeBody(text); body != "" {
		pdf.SetFont(fontName, "", bodySize)
		pdf.MultiCell(0, bodySize*1.3, tr(body), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "document: render pdf")
	}

	return &model.ReportDocument{
		Content: buf.Bytes(),
		Pages:   pdf.PageNo(),
	}, nil
}

// normalizeBody converts line endings and tabs, and trims trailing space.
func normalizeBody(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	return strings.TrimRightFunc(text, func(r rune) bool {
		return r == ' ' || r == '\n'
	})
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
