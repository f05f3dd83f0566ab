// Package session binds one assessment document to the editor surface:
// draft persistence, dirty tracking, debounced autosave, version
// history with a confirm-before-discard gate, and the document's
// comment thread. A Session is an explicit handle; hosts that show
// several editors hold several sessions, though only one is active in
// a given editor at a time.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"rhesult/api/internal/autosave"
	"rhesult/api/internal/client"
	"rhesult/api/internal/codec"
	"rhesult/api/internal/draft"
)

var (
	// ErrUnsavedChanges gates destructive loads: the caller must
	// confirm discarding unsaved work and retry with discard set.
	ErrUnsavedChanges = errors.New("session has unsaved changes")
	// ErrSaveInFlight reports a save request dropped because one is
	// already running. It is never queued.
	ErrSaveInFlight   = errors.New("a save is already in flight")
	ErrEmptyContent   = errors.New("assessment content is empty")
	ErrMissingSubject = errors.New("candidate and position must be selected")
	ErrEmptyComment   = errors.New("comment text is empty")
	ErrNoDocument     = errors.New("session has no persisted document")
)

// Backend is the server-facing surface the session saves to and loads
// from. *client.Client implements it.
type Backend interface {
	GetDocument(ctx context.Context, id string) (client.Document, error)
	CreateDocument(ctx context.Context, input client.CreateDocumentInput) (client.Document, error)
	UpdateDocument(ctx context.Context, id string, input client.UpdateDocumentInput) (client.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListComments(ctx context.Context, documentID string) ([]client.Comment, error)
	AddComment(ctx context.Context, documentID, text string) (client.Comment, error)
	ListVersions(ctx context.Context, documentID string) ([]client.Version, error)
	GetVersion(ctx context.Context, documentID, versionID string) (client.VersionContent, error)
}

// Options configures a session.
type Options struct {
	// AutosaveDelay is the inactivity window before a dirty, valid
	// session autosaves. Zero means autosave.DefaultDelay.
	AutosaveDelay time.Duration
	// Evaluator is stamped on documents this session creates.
	Evaluator string
	// OnAsyncError receives failures from operations with no caller
	// to return to (autosave, background refreshes). Defaults to
	// log.Printf. The toast surface of the host hooks in here.
	OnAsyncError func(op string, err error)
}

type Session struct {
	backend   Backend
	drafts    draft.Store
	sched     *autosave.Scheduler
	evaluator string
	onError   func(op string, err error)

	mu          sync.Mutex
	documentID  string
	candidateID string
	positionID  string
	content     string
	status      string
	lastSaved   string
	dirty       bool
	comments    []client.Comment
	versions    []client.Version
}

func New(backend Backend, drafts draft.Store, opts Options) *Session {
	s := &Session{
		backend:   backend,
		drafts:    drafts,
		evaluator: opts.Evaluator,
		status:    client.StatusPending,
		onError:   opts.OnAsyncError,
	}
	if s.onError == nil {
		s.onError = func(op string, err error) {
			log.Printf("session: %s failed: %v", op, err)
		}
	}
	s.sched = autosave.New(opts.AutosaveDelay, s.autosaveFire)
	return s
}

// Close cancels any pending autosave timer. An in-flight save is left
// to complete in the background.
func (s *Session) Close() {
	s.sched.Cancel()
}

// Select loads a persisted document, its comments and its versions
// into the session. While the session is dirty the load is blocked
// with ErrUnsavedChanges until the caller confirms with discardUnsaved.
// Any load error leaves the previous session state fully intact.
func (s *Session) Select(ctx context.Context, id string, discardUnsaved bool) error {
	s.mu.Lock()
	if s.dirty && !discardUnsaved {
		s.mu.Unlock()
		return ErrUnsavedChanges
	}
	s.mu.Unlock()

	doc, err := s.backend.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.backend.ListComments(ctx, id)
	if err != nil {
		return err
	}
	versions, err := s.backend.ListVersions(ctx, id)
	if err != nil {
		return err
	}

	s.sched.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	editable := codec.ToEditable(doc.Content)
	s.documentID = doc.ID
	s.candidateID = doc.CandidateID
	s.positionID = doc.PositionID
	s.content = editable
	s.status = doc.Status
	s.lastSaved = editable
	s.dirty = false
	s.comments = comments
	s.versions = versions

	// Restore work in progress left behind by a reload or navigation.
	if pending, ok := s.drafts.Read(s.keyLocked()); ok {
		if pending.Content != "" {
			s.content = pending.Content
		}
		if pending.Status != "" {
			s.status = pending.Status
		}
		s.dirty = Changed(s.content, s.lastSaved)
	}
	return nil
}

// StartNew resets the session to a blank, not-yet-created document for
// the given candidate and position. The same dirty gate as Select
// applies.
func (s *Session) StartNew(candidateID, positionID string, discardUnsaved bool) error {
	s.mu.Lock()
	if s.dirty && !discardUnsaved {
		s.mu.Unlock()
		return ErrUnsavedChanges
	}
	s.mu.Unlock()

	s.sched.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.documentID = ""
	s.candidateID = candidateID
	s.positionID = positionID
	s.content = ""
	s.status = client.StatusPending
	s.lastSaved = ""
	s.dirty = false
	s.comments = nil
	s.versions = nil

	if pending, ok := s.drafts.Read(s.keyLocked()); ok {
		if pending.Content != "" {
			s.content = pending.Content
		}
		if pending.Status != "" {
			s.status = pending.Status
		}
		s.dirty = Changed(s.content, s.lastSaved)
	}
	return nil
}

// EditContent stores the editor's current markup, recomputes the dirty
// signal, persists the draft and (re)arms the autosave window.
func (s *Session) EditContent(markup string) {
	s.mu.Lock()
	s.content = markup
	s.dirty = Changed(s.content, s.lastSaved)
	s.writeDraftLocked()
	arm := s.dirty && s.validLocked()
	dirty := s.dirty
	s.mu.Unlock()

	if arm {
		s.sched.Arm()
	} else if !dirty {
		s.sched.Cancel()
	}
}

// SetStatus stores a status value. The enumeration is closed but has
// no transition graph; any value is accepted at any time. Dirtyness is
// recomputed the same way a content edit recomputes it.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.dirty = Changed(s.content, s.lastSaved)
	s.writeDraftLocked()
	arm := s.dirty && s.validLocked()
	s.mu.Unlock()

	if arm {
		s.sched.Arm()
	}
}

// Save persists the session now: a create for a not-yet-persisted
// document (the returned id is adopted), an update otherwise. The
// dirty signal clears only after the server acknowledges. A save
// already in flight drops the request with ErrSaveInFlight.
func (s *Session) Save(ctx context.Context) error {
	if !s.sched.BeginSave() {
		return ErrSaveInFlight
	}
	defer s.sched.Done()
	return s.doSave(ctx)
}

// autosaveFire runs on the scheduler's timer; the scheduler has
// already claimed the saving slot.
func (s *Session) autosaveFire() {
	s.mu.Lock()
	dirty := s.dirty && s.validLocked()
	s.mu.Unlock()
	if !dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.doSave(ctx); err != nil {
		s.onError("autosave", err)
	}
}

func (s *Session) doSave(ctx context.Context) error {
	s.mu.Lock()
	id := s.documentID
	candidateID := s.candidateID
	positionID := s.positionID
	content := s.content
	status := s.status
	key := s.keyLocked()
	s.mu.Unlock()

	if codec.ToPlainText(content) == "" {
		return ErrEmptyContent
	}
	if candidateID == "" || positionID == "" {
		return ErrMissingSubject
	}

	var doc client.Document
	var err error
	if id == "" {
		doc, err = s.backend.CreateDocument(ctx, client.CreateDocumentInput{
			CandidateID: candidateID,
			PositionID:  positionID,
			EvaluatorID: s.evaluator,
			Content:     content,
			Status:      status,
		})
	} else {
		doc, err = s.backend.UpdateDocument(ctx, id, client.UpdateDocumentInput{
			Content: &content,
			Status:  &status,
		})
	}
	if err != nil {
		// Dirty stays set; the next edit or manual save retries.
		return err
	}

	s.mu.Lock()
	if id == "" {
		// The session adopts the new identity; the draft that
		// shadowed the unsaved document is obsolete.
		s.drafts.Clear(key)
		s.documentID = doc.ID
	}
	s.lastSaved = content
	s.dirty = Changed(s.content, s.lastSaved)
	if s.dirty {
		// Edits landed while the save was in flight; keep them
		// shadowed.
		s.writeDraftLocked()
	} else {
		s.drafts.Clear(s.keyLocked())
	}
	documentID := s.documentID
	s.mu.Unlock()

	s.refreshVersions(ctx, documentID)
	return nil
}

// Duplicate creates a brand-new document from the in-memory content
// and subject references. The copy always starts as pending, whatever
// the source status is. The active session is left untouched.
func (s *Session) Duplicate(ctx context.Context) (client.Document, error) {
	s.mu.Lock()
	candidateID := s.candidateID
	positionID := s.positionID
	content := s.content
	s.mu.Unlock()

	if candidateID == "" || positionID == "" {
		return client.Document{}, ErrMissingSubject
	}

	return s.backend.CreateDocument(ctx, client.CreateDocumentInput{
		CandidateID: candidateID,
		PositionID:  positionID,
		EvaluatorID: s.evaluator,
		Content:     content,
		Status:      client.StatusPending,
	})
}

// Delete irreversibly removes the persisted document and clears the
// active session.
func (s *Session) Delete(ctx context.Context) error {
	s.mu.Lock()
	id := s.documentID
	key := s.keyLocked()
	s.mu.Unlock()

	if id == "" {
		return ErrNoDocument
	}
	if err := s.backend.DeleteDocument(ctx, id); err != nil {
		return err
	}

	s.sched.Cancel()
	s.drafts.Clear(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentID = ""
	s.candidateID = ""
	s.positionID = ""
	s.content = ""
	s.status = client.StatusPending
	s.lastSaved = ""
	s.dirty = false
	s.comments = nil
	s.versions = nil
	return nil
}

func (s *Session) refreshVersions(ctx context.Context, documentID string) {
	if documentID == "" {
		return
	}
	versions, err := s.backend.ListVersions(ctx, documentID)
	if err != nil {
		s.onError("refresh versions", err)
		return
	}
	s.mu.Lock()
	if s.documentID == documentID {
		s.versions = versions
	}
	s.mu.Unlock()
}

// validLocked reports whether the session may be saved: non-empty
// plain text and both subject references selected.
func (s *Session) validLocked() bool {
	return codec.ToPlainText(s.content) != "" && s.candidateID != "" && s.positionID != ""
}

func (s *Session) keyLocked() string {
	return draft.KeyFor(s.documentID, s.candidateID, s.positionID)
}

func (s *Session) writeDraftLocked() {
	s.drafts.Write(s.keyLocked(), draft.Payload{
		DocumentID:  s.documentID,
		CandidateID: s.candidateID,
		PositionID:  s.positionID,
		Content:     s.content,
		Status:      s.status,
	})
}

// Accessors. All take the session lock; the autosave timer mutates
// state from its own goroutine.

func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}

func (s *Session) Subject() (candidateID, positionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidateID, s.positionID
}

func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) SchedulerState() autosave.State {
	return s.sched.State()
}
