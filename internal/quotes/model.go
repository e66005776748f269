package quotes

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("quotes: quote request not found")
	ErrDuplicate = errors.New("quotes: duplicate reference")
)

// QuoteRequest is an accepted submission.
type QuoteRequest struct {
	Reference     string           `json:"referenceNumber"`
	FormID        string           `json:"formId"`
	InsuranceType string           `json:"insuranceType,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	Payload       map[string]any   `json:"payload"`
	Attachments   []AttachmentInfo `json:"attachments,omitempty"`
}

// AttachmentInfo summarises one uploaded file. The bytes stay in the payload.
type AttachmentInfo struct {
	Field       string `json:"field"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// ValidationError carries field errors keyed by payload path.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return "quotes: " + e.Message
	}
	return "quotes: validation failed"
}

// BadRequestError marks a payload that could not be decoded.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return "quotes: bad request: " + e.Err.Error() }

func (e *BadRequestError) Unwrap() error { return e.Err }
