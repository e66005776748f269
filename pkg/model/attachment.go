package model

import (
	"path/filepath"
	"strings"
)

// Attachment is a selected file held in form state until submission.
type Attachment struct {
	Name        string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// Accepts reports whether the attachment matches one of the accept hints.
// Hints are extensions (`.pdf`), exact MIME types (`application/pdf`) or MIME
// wildcards (`image/*`). An empty hint list accepts everything.
func (a Attachment) Accepts(hints []string) bool {
	if len(hints) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(a.Name))
	contentType := strings.ToLower(strings.TrimSpace(a.ContentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	for _, hint := range hints {
		hint = strings.ToLower(strings.TrimSpace(hint))
		switch {
		case hint == "":
			continue
		case strings.HasPrefix(hint, "."):
			if ext == hint {
				return true
			}
		case strings.HasSuffix(hint, "/*"):
			if contentType != "" && strings.HasPrefix(contentType, strings.TrimSuffix(hint, "*")) {
				return true
			}
		case hint == contentType:
			return true
		}
	}
	return false
}
