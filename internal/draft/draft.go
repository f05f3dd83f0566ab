// Package draft provides the keyed, durable cache of in-progress
// assessment edits. A draft survives reloads and navigation and is
// independent of server state: exactly one draft exists per key, writes
// are last-write-wins, and durability is best effort only.
package draft

// Payload is the client-local snapshot of one edit in progress.
type Payload struct {
	DocumentID  string `json:"document_id,omitempty"`
	CandidateID string `json:"candidate_id"`
	PositionID  string `json:"position_id"`
	Content     string `json:"content"`
	Status      string `json:"status"`
}

// Store is the draft cache. Write and Clear swallow storage failures:
// draft persistence is a convenience, never a correctness guarantee,
// so a failing backend must not surface errors into the edit path.
type Store interface {
	// Write overwrites the draft under key. Called on every edit.
	Write(key string, payload Payload)
	// Read returns the draft under key, if any. A payload that fails
	// to decode behaves as if absent.
	Read(key string) (Payload, bool)
	// Clear removes the draft under key.
	Clear(key string)
}

// KeyFor derives the cache key for a session. Persisted documents are
// keyed by id alone, so the key is stable no matter how the candidate
// or position selectors move afterwards. A not-yet-created document is
// keyed by its (candidate, position) pair with placeholders for empty
// selectors; the two keyspaces are disjoint.
func KeyFor(documentID, candidateID, positionID string) string {
	if documentID != "" {
		return "doc:" + documentID
	}
	if candidateID == "" {
		candidateID = "-"
	}
	if positionID == "" {
		positionID = "-"
	}
	return "new:" + candidateID + ":" + positionID
}
