package pages

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxImageBytes caps image uploads.
	DefaultMaxImageBytes int64 = 2 << 20
	// DefaultMaxDocumentBytes caps PDF uploads.
	DefaultMaxDocumentBytes int64 = 10 << 20

	pdfContentType = "application/pdf"
)

// UploadPolicy holds the client-side preconditions checked before an upload request.
type UploadPolicy struct {
	MaxImageBytes    int64
	MaxDocumentBytes int64
	// AllowedTypes extends the implicit image/* rule, e.g. "application/pdf".
	AllowedTypes []string
}

// DefaultUploadPolicy accepts images up to 2MB and PDFs up to 10MB.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxImageBytes:    DefaultMaxImageBytes,
		MaxDocumentBytes: DefaultMaxDocumentBytes,
		AllowedTypes:     []string{pdfContentType},
	}
}

// Check validates the file type and size. It resolves a missing content type from
// the file extension and stores it back on the returned file.
func (p UploadPolicy) Check(field string, file UploadFile) (UploadFile, error) {
	p = p.withDefaults()
	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name)))
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if contentType == "" {
		return file, &UploadError{Field: field, Reason: "unknown file type"}
	}
	if !strings.HasPrefix(contentType, "image/") && !p.allowed(contentType) {
		return file, &UploadError{Field: field, Reason: fmt.Sprintf("file type %s is not allowed", contentType)}
	}
	limit := p.MaxImageBytes
	if contentType == pdfContentType {
		limit = p.MaxDocumentBytes
	}
	if file.Size <= 0 {
		return file, &UploadError{Field: field, Reason: "file is empty"}
	}
	if file.Size > limit {
		return file, &UploadError{Field: field, Reason: fmt.Sprintf("file is %d bytes, limit is %d", file.Size, limit)}
	}
	file.ContentType = contentType
	return file, nil
}

func (p UploadPolicy) allowed(contentType string) bool {
	for _, t := range p.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func (p UploadPolicy) withDefaults() UploadPolicy {
	if p.MaxImageBytes <= 0 {
		p.MaxImageBytes = DefaultMaxImageBytes
	}
	if p.MaxDocumentBytes <= 0 {
		p.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	return p
}
