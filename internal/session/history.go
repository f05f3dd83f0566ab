package session

import (
	"context"

	"rhesult/api/internal/client"
	"rhesult/api/internal/codec"
)

// Versions returns the immutable snapshot list, newest first. The list
// is refreshed on Select and after every successful save.
func (s *Session) Versions() []client.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := make([]client.Version, len(s.versions))
	copy(versions, s.versions)
	return versions
}

// LoadVersion replaces the live content with one immutable snapshot.
// While the session is dirty the load is blocked with
// ErrUnsavedChanges until the caller confirms that unsaved work will
// be replaced. The restored snapshot is not considered saved: the
// session comes out dirty and must go through Save to become a new
// version.
func (s *Session) LoadVersion(ctx context.Context, versionID string, discardUnsaved bool) error {
	s.mu.Lock()
	id := s.documentID
	if id == "" {
		s.mu.Unlock()
		return ErrNoDocument
	}
	if s.dirty && !discardUnsaved {
		s.mu.Unlock()
		return ErrUnsavedChanges
	}
	s.mu.Unlock()

	snapshot, err := s.backend.GetVersion(ctx, id, versionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = codec.ToEditable(snapshot.Content)
	if snapshot.Status != "" {
		s.status = snapshot.Status
	}
	s.dirty = true
	s.writeDraftLocked()
	arm := s.validLocked()
	s.mu.Unlock()

	if arm {
		s.sched.Arm()
	}
	return nil
}
