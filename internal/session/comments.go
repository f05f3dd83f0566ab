package session

import (
	"context"
	"strings"

	"rhesult/api/internal/client"
)

// Comments returns the thread scoped to the active document, ordered
// oldest to newest. The thread is append-only; nothing here edits or
// removes a comment.
func (s *Session) Comments() []client.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments := make([]client.Comment, len(s.comments))
	copy(comments, s.comments)
	return comments
}

// Comment appends to the thread. Whitespace-only text is rejected
// before any network call. The server owns id, author and createdAt,
// so the record it returns is what lands in the local list.
func (s *Session) Comment(ctx context.Context, text string) (client.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return client.Comment{}, ErrEmptyComment
	}

	s.mu.Lock()
	id := s.documentID
	s.mu.Unlock()
	if id == "" {
		return client.Comment{}, ErrNoDocument
	}

	comment, err := s.backend.AddComment(ctx, id, text)
	if err != nil {
		return client.Comment{}, err
	}

	s.mu.Lock()
	if s.documentID == id {
		s.comments = append(s.comments, comment)
	}
	s.mu.Unlock()
	return comment, nil
}
