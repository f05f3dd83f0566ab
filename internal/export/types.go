package export

import (
	"context"
	"errors"
	"time"
)

// Format identifies the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Request contains parameters for an export operation
type Request struct {
	DocumentID      string
	Format          Format
	IncludeComments bool
}

// DocumentInfo carries the assessment data needed to render an export.
type DocumentInfo struct {
	ID          string
	CandidateID string
	PositionID  string
	EvaluatorID string
	Content     string
	Status      string
	UpdatedAt   time.Time
}

// CommentInfo is one entry of the document's comment thread.
type CommentInfo struct {
	Author    string
	Text      string
	CreatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// DataSource supplies the document and its comments for rendering.
type DataSource interface {
	GetDocument(ctx context.Context, id string) (DocumentInfo, error)
	ListComments(ctx context.Context, documentID string) ([]CommentInfo, error)
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
