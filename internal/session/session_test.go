package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rhesult/api/internal/client"
	"rhesult/api/internal/draft"
)

const testDelay = 40 * time.Millisecond

type fakeBackend struct {
	mu sync.Mutex

	getDocumentFn  func(ctx context.Context, id string) (client.Document, error)
	createFn       func(ctx context.Context, input client.CreateDocumentInput) (client.Document, error)
	updateFn       func(ctx context.Context, id string, input client.UpdateDocumentInput) (client.Document, error)
	deleteFn       func(ctx context.Context, id string) error
	listCommentsFn func(ctx context.Context, documentID string) ([]client.Comment, error)
	addCommentFn   func(ctx context.Context, documentID, text string) (client.Comment, error)
	listVersionsFn func(ctx context.Context, documentID string) ([]client.Version, error)
	getVersionFn   func(ctx context.Context, documentID, versionID string) (client.VersionContent, error)

	createCalls  atomic.Int32
	updateCalls  atomic.Int32
	commentCalls atomic.Int32

	lastUpdateID    string
	lastUpdateInput client.UpdateDocumentInput
}

func (f *fakeBackend) GetDocument(ctx context.Context, id string) (client.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, id)
	}
	return client.Document{ID: id, CandidateID: "7", PositionID: "3", Status: client.StatusPending}, nil
}

func (f *fakeBackend) CreateDocument(ctx context.Context, input client.CreateDocumentInput) (client.Document, error) {
	f.createCalls.Add(1)
	if f.createFn != nil {
		return f.createFn(ctx, input)
	}
	return client.Document{
		ID:          "42",
		CandidateID: input.CandidateID,
		PositionID:  input.PositionID,
		EvaluatorID: input.EvaluatorID,
		Content:     input.Content,
		Status:      input.Status,
	}, nil
}

func (f *fakeBackend) UpdateDocument(ctx context.Context, id string, input client.UpdateDocumentInput) (client.Document, error) {
	f.updateCalls.Add(1)
	f.mu.Lock()
	f.lastUpdateID = id
	f.lastUpdateInput = input
	f.mu.Unlock()
	if f.updateFn != nil {
		return f.updateFn(ctx, id, input)
	}
	doc := client.Document{ID: id}
	if input.Content != nil {
		doc.Content = *input.Content
	}
	if input.Status != nil {
		doc.Status = *input.Status
	}
	return doc, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeBackend) ListComments(ctx context.Context, documentID string) ([]client.Comment, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx, documentID)
	}
	return nil, nil
}

func (f *fakeBackend) AddComment(ctx context.Context, documentID, text string) (client.Comment, error) {
	f.commentCalls.Add(1)
	if f.addCommentFn != nil {
		return f.addCommentFn(ctx, documentID, text)
	}
	return client.Comment{ID: "c1", DocumentID: documentID, Author: "ana", Text: text, CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) ListVersions(ctx context.Context, documentID string) ([]client.Version, error) {
	if f.listVersionsFn != nil {
		return f.listVersionsFn(ctx, documentID)
	}
	return nil, nil
}

func (f *fakeBackend) GetVersion(ctx context.Context, documentID, versionID string) (client.VersionContent, error) {
	if f.getVersionFn != nil {
		return f.getVersionFn(ctx, documentID, versionID)
	}
	return client.VersionContent{}, errors.New("no version")
}

func newTestSession(backend *fakeBackend) *Session {
	return New(backend, draft.NewMemoryStore(), Options{
		AutosaveDelay: testDelay,
		Evaluator:     "eval-1",
		OnAsyncError:  func(string, error) {},
	})
}

func TestChanged(t *testing.T) {
	if Changed("same", "same") {
		t.Error("identical content must not be dirty")
	}
	if !Changed("a", "b") {
		t.Error("differing content must be dirty")
	}
	if Changed("", "") {
		t.Error("blank session must not be dirty")
	}
}

func TestCreateThenAutosaveUpdates(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>Hello</p>")
	if !s.Dirty() {
		t.Fatal("expected dirty after first edit")
	}

	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if s.DocumentID() != "42" {
		t.Fatalf("expected adopted id 42, got %q", s.DocumentID())
	}
	if s.Dirty() {
		t.Fatal("expected clean session after acked save")
	}

	// A subsequent edit re-dirties and, after the inactivity window,
	// autosaves exactly once with the latest content.
	s.EditContent("<p>Hello world</p>")
	if !s.Dirty() {
		t.Fatal("expected dirty after edit")
	}

	time.Sleep(4 * testDelay)

	if got := backend.updateCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one autosave update, got %d", got)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.lastUpdateID != "42" {
		t.Errorf("autosave hit document %q, want 42", backend.lastUpdateID)
	}
	if backend.lastUpdateInput.Content == nil || *backend.lastUpdateInput.Content != "<p>Hello world</p>" {
		t.Errorf("autosave carried %v, want latest content", backend.lastUpdateInput.Content)
	}
}

func TestAutosaveDebouncesBurst(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	if err := s.Save(context.Background()); err != ErrEmptyContent {
		t.Fatalf("expected ErrEmptyContent for blank save, got %v", err)
	}

	edits := []string{"<p>a</p>", "<p>ab</p>", "<p>abc</p>", "<p>abcd</p>"}
	for _, edit := range edits {
		s.EditContent(edit)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(4 * testDelay)

	if got := backend.createCalls.Load(); got != 1 {
		t.Fatalf("expected one create from the burst, got %d", got)
	}
}

func TestManualSavePreventsDoubleSave(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>typed fast, saved faster</p>")

	// Manual save while the autosave timer is still pending.
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The original window elapsing must not trigger a second call.
	time.Sleep(4 * testDelay)

	total := backend.createCalls.Load() + backend.updateCalls.Load()
	if total != 1 {
		t.Errorf("expected exactly one save, got %d", total)
	}
}

func TestSaveWhileSavingIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	backend := &fakeBackend{
		createFn: func(ctx context.Context, input client.CreateDocumentInput) (client.Document, error) {
			close(started)
			<-release
			return client.Document{ID: "42"}, nil
		},
	}
	s := newTestSession(backend)
	defer s.Close()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>slow network</p>")

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()
	<-started

	if err := s.Save(context.Background()); err != ErrSaveInFlight {
		t.Errorf("expected ErrSaveInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first save failed: %v", err)
	}
}

func TestSaveValidation(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.StartNew("", "", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>content without a subject</p>")
	if err := s.Save(ctx); err != ErrMissingSubject {
		t.Errorf("expected ErrMissingSubject, got %v", err)
	}

	if err := s.StartNew("7", "3", true); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>   </p>")
	if err := s.Save(ctx); err != ErrEmptyContent {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}

	if got := backend.createCalls.Load(); got != 0 {
		t.Errorf("invalid saves must not reach the network, got %d calls", got)
	}
}

func TestSaveFailureLeavesDirty(t *testing.T) {
	backend := &fakeBackend{
		createFn: func(ctx context.Context, input client.CreateDocumentInput) (client.Document, error) {
			return client.Document{}, errors.New("boom")
		},
	}
	s := newTestSession(backend)
	defer s.Close()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>will not stick</p>")

	if err := s.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	if !s.Dirty() {
		t.Error("failed save must leave the session dirty")
	}
	if s.DocumentID() != "" {
		t.Error("failed create must not adopt an id")
	}
}

func TestSelectFailureLeavesSessionIntact(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.Select(ctx, "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	backend.getDocumentFn = func(ctx context.Context, id string) (client.Document, error) {
		return client.Document{}, errors.New("network down")
	}
	if err := s.Select(ctx, "doc-2", false); err == nil {
		t.Fatal("expected load failure")
	}
	if s.DocumentID() != "doc-1" {
		t.Errorf("failed load must keep the previous session, got %q", s.DocumentID())
	}
}

func TestSelectWhileDirtyIsGated(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.Select(ctx, "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	s.EditContent("<p>unsaved</p>")

	if err := s.Select(ctx, "doc-2", false); err != ErrUnsavedChanges {
		t.Fatalf("expected ErrUnsavedChanges, got %v", err)
	}
	if s.DocumentID() != "doc-1" {
		t.Error("gated select must not switch documents")
	}

	if err := s.Select(ctx, "doc-2", true); err != nil {
		t.Fatalf("confirmed select failed: %v", err)
	}
	if s.DocumentID() != "doc-2" {
		t.Errorf("expected doc-2 after confirmed select, got %q", s.DocumentID())
	}
	if s.Dirty() {
		t.Error("freshly loaded session must be clean")
	}
}

func TestSelectConvertsLegacyContent(t *testing.T) {
	backend := &fakeBackend{
		getDocumentFn: func(ctx context.Context, id string) (client.Document, error) {
			return client.Document{ID: id, CandidateID: "7", PositionID: "3", Content: "# Verdict\n\nSolid hire.", Status: client.StatusApproved}, nil
		},
	}
	s := newTestSession(backend)
	defer s.Close()

	if err := s.Select(context.Background(), "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	want := "<h1>Verdict</h1><p>Solid hire.</p>"
	if s.Content() != want {
		t.Errorf("expected upgraded content %q, got %q", want, s.Content())
	}
	// The upgraded form is the saved baseline, not a pending change.
	if s.Dirty() {
		t.Error("legacy upgrade must not mark the session dirty")
	}
}

func TestDraftRestoredOnSelect(t *testing.T) {
	backend := &fakeBackend{
		getDocumentFn: func(ctx context.Context, id string) (client.Document, error) {
			return client.Document{ID: id, CandidateID: "7", PositionID: "3", Content: "<p>server copy</p>", Status: client.StatusPending}, nil
		},
	}
	drafts := draft.NewMemoryStore()
	drafts.Write(draft.KeyFor("doc-1", "", ""), draft.Payload{
		DocumentID: "doc-1",
		Content:    "<p>work in progress</p>",
		Status:     client.StatusNeedsChanges,
	})

	s := New(backend, drafts, Options{AutosaveDelay: testDelay, OnAsyncError: func(string, error) {}})
	defer s.Close()

	if err := s.Select(context.Background(), "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if s.Content() != "<p>work in progress</p>" {
		t.Errorf("expected restored draft content, got %q", s.Content())
	}
	if s.Status() != client.StatusNeedsChanges {
		t.Errorf("expected restored draft status, got %q", s.Status())
	}
	if !s.Dirty() {
		t.Error("restored draft differs from server copy, session must be dirty")
	}
}

func TestDraftClearedAfterSuccessfulSave(t *testing.T) {
	backend := &fakeBackend{}
	drafts := draft.NewMemoryStore()
	s := New(backend, drafts, Options{AutosaveDelay: testDelay, OnAsyncError: func(string, error) {}})
	defer s.Close()

	if err := s.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	s.EditContent("<p>Hello</p>")

	newKey := draft.KeyFor("", "7", "3")
	if _, ok := drafts.Read(newKey); !ok {
		t.Fatal("expected draft while editing")
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, ok := drafts.Read(newKey); ok {
		t.Error("new-document draft must be cleared once the save it shadowed succeeds")
	}
	if _, ok := drafts.Read(draft.KeyFor("42", "", "")); ok {
		t.Error("no draft should shadow a clean, just-saved document")
	}
}

func TestTwoNewSessionsShareDraftKey(t *testing.T) {
	backend := &fakeBackend{}
	drafts := draft.NewMemoryStore()

	first := New(backend, drafts, Options{AutosaveDelay: testDelay, OnAsyncError: func(string, error) {}})
	defer first.Close()
	second := New(backend, drafts, Options{AutosaveDelay: testDelay, OnAsyncError: func(string, error) {}})
	defer second.Close()

	if err := first.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	first.EditContent("<p>first tab</p>")

	if err := second.StartNew("7", "3", false); err != nil {
		t.Fatalf("StartNew failed: %v", err)
	}
	// The second session resurrects the first one's draft...
	if second.Content() != "<p>first tab</p>" {
		t.Errorf("expected shared draft, got %q", second.Content())
	}
	// ...and its edits clobber it. Last write wins, no merge.
	second.EditContent("<p>second tab</p>")
	payload, ok := drafts.Read(draft.KeyFor("", "7", "3"))
	if !ok || payload.Content != "<p>second tab</p>" {
		t.Errorf("expected second tab's draft to win, got %+v ok=%v", payload, ok)
	}
}

func TestDuplicateForcesPendingStatus(t *testing.T) {
	backend := &fakeBackend{
		getDocumentFn: func(ctx context.Context, id string) (client.Document, error) {
			return client.Document{ID: id, CandidateID: "7", PositionID: "3", Content: "<p>approved text</p>", Status: client.StatusApproved}, nil
		},
		createFn: func(ctx context.Context, input client.CreateDocumentInput) (client.Document, error) {
			return client.Document{
				ID:          "dup-1",
				CandidateID: input.CandidateID,
				PositionID:  input.PositionID,
				Content:     input.Content,
				Status:      input.Status,
			}, nil
		},
	}
	s := newTestSession(backend)
	defer s.Close()
	ctx := context.Background()

	if err := s.Select(ctx, "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	copy, err := s.Duplicate(ctx)
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if copy.Status != client.StatusPending {
		t.Errorf("duplicate must start pending, got %q", copy.Status)
	}
	if copy.Content != "<p>approved text</p>" {
		t.Errorf("duplicate must carry the in-memory content, got %q", copy.Content)
	}
	// The active session still points at the source document.
	if s.DocumentID() != "doc-1" {
		t.Errorf("duplicate must not switch the session, got %q", s.DocumentID())
	}
}

func TestDeleteClearsSession(t *testing.T) {
	backend := &fakeBackend{}
	drafts := draft.NewMemoryStore()
	s := New(backend, drafts, Options{AutosaveDelay: testDelay, OnAsyncError: func(string, error) {}})
	defer s.Close()
	ctx := context.Background()

	if err := s.Select(ctx, "doc-1", false); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	s.EditContent("<p>about to go</p>")

	if err := s.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.DocumentID() != "" || s.Content() != "" || s.Dirty() {
		t.Error("delete must reset the session to a blank state")
	}
	if _, ok := drafts.Read(draft.KeyFor("doc-1", "", "")); ok {
		t.Error("delete must drop the document's draft")
	}
}

func TestDeleteWithoutDocument(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	defer s.Close()
	if err := s.Delete(context.Background()); err != ErrNoDocument {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
}
