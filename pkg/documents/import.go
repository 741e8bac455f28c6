// Package documents turns confirmed file uploads into clinical document
// records: type classification from MIME, category coercion against the
// closed set, and display sizing.
package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanguard-health/pulse/pkg/common/models"
)

// Categories is the closed set selectable at upload confirmation.
var Categories = []models.DocumentCategory{
	models.CategoryRadiology,
	models.CategoryPathology,
	models.CategoryDischargeSummary,
	models.CategoryLabResult,
	models.CategoryOther,
}

// IDSource mints document identifiers (DOC-<9 alphanumerics>).
type IDSource interface {
	DocumentID() string
}

// Upload is a confirmed import: the file's metadata plus its payload as a
// data URI.
type Upload struct {
	FileName  string
	MIMEType  string
	SizeBytes int64
	Category  string
	Content   string
}

// Importer builds ClinicalDocument records with a fixed uploader label.
type Importer struct {
	ids      IDSource
	uploader string
	nowFunc  func() time.Time
}

func NewImporter(ids IDSource, uploader string) *Importer {
	return &Importer{ids: ids, uploader: uploader, nowFunc: time.Now}
}

// Build classifies and stamps the upload. The document is immutable after
// this point.
func (im *Importer) Build(up Upload) models.ClinicalDocument {
	return models.ClinicalDocument{
		ID:         im.ids.DocumentID(),
		Name:       up.FileName,
		Type:       ClassifyMIME(up.MIMEType),
		Category:   CoerceCategory(up.Category),
		UploadDate: im.nowFunc().UTC(),
		Size:       FormatSize(up.SizeBytes),
		Uploader:   im.uploader,
		Content:    up.Content,
	}
}

// ClassifyMIME maps a MIME type onto the document type enum. Anything
// recognizable but neither PDF nor image is treated as a lab payload;
// empty or unusable types fall back to SCAN.
func ClassifyMIME(mimeType string) models.DocumentType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mt == "":
		return models.DocumentScan
	case strings.Contains(mt, "pdf"):
		return models.DocumentPDF
	case strings.Contains(mt, "image"):
		return models.DocumentImage
	default:
		return models.DocumentLab
	}
}

// CoerceCategory validates against the closed set; anything else becomes
// Other.
func CoerceCategory(category string) models.DocumentCategory {
	for _, c := range Categories {
		if string(c) == category {
			return c
		}
	}
	return models.CategoryOther
}

// FormatSize renders a byte count as MB with two decimals, matching the
// display contract of the vault view.
func FormatSize(sizeBytes int64) string {
	mb := float64(sizeBytes) / 1024 / 1024
	return fmt.Sprintf("%.2f MB", mb)
}
