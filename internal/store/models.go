package store

import "time"

// Assessment status values. The enumeration is closed; there is no
// transition graph, any value may replace any other.
const (
	StatusPending      = "pending"
	StatusApproved     = "approved"
	StatusRejected     = "rejected"
	StatusNeedsChanges = "needs-changes"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusNeedsChanges:
		return true
	}
	return false
}

// Document is the row backing one assessment ("parecer"): the
// evaluator's verdict for a candidate-position pair. The content
// itself lives in the document's version repository; the row carries
// identity and the mutable status.
type Document struct {
	ID          string
	CandidateID string
	PositionID  string
	EvaluatorID string
	Status      string
	UpdatedAt   time.Time
}

// Comment is one entry in a document's append-only thread. Comments
// are never edited or deleted.
type Comment struct {
	ID         string
	DocumentID string
	Author     string
	Text       string
	CreatedAt  time.Time
}

// Version references one immutable snapshot taken at save time. The
// id is the snapshot's abbreviated commit hash.
type Version struct {
	ID        string
	Status    string
	Author    string
	CreatedAt time.Time
}
