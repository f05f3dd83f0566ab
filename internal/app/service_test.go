package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"rhesult/api/internal/config"
	"rhesult/api/internal/export"
	"rhesult/api/internal/gitrepo"
	"rhesult/api/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := &Service{
		cfg:      config.Config{},
		store:    store.NewMemoryStore(),
		versions: gitrepo.New(t.TempDir()),
	}
	s.exporter = export.NewService(&exportAdapter{service: s})
	return s
}

func mustCreate(t *testing.T, svc *Service, input CreateDocumentInput) DocumentPayload {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	return doc
}

func TestCreateDocumentValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateDocumentInput
	}{
		{"missing candidate", CreateDocumentInput{PositionID: "3", Content: "<p>x</p>"}},
		{"missing position", CreateDocumentInput{CandidateID: "7", Content: "<p>x</p>"}},
		{"empty content", CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>   </p>"}},
		{"unknown status", CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>x</p>", Status: "maybe"}},
	}
	for _, tc := range cases {
		_, err := svc.CreateDocument(ctx, tc.input)
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			t.Errorf("%s: expected DomainError, got %v", tc.name, err)
			continue
		}
		if domainErr.Status != 422 {
			t.Errorf("%s: expected 422, got %d", tc.name, domainErr.Status)
		}
	}
}

func TestCreateDocumentDefaultsToPending(t *testing.T) {
	svc := newTestService(t)
	doc := mustCreate(t, svc, CreateDocumentInput{
		CandidateID: "7",
		PositionID:  "3",
		EvaluatorID: "ana",
		Content:     "<p>First impression</p>",
	})

	if doc.Status != store.StatusPending {
		t.Errorf("expected pending, got %q", doc.Status)
	}
	if doc.ID == "" {
		t.Error("expected generated document id")
	}

	loaded, err := svc.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if loaded.Content != "<p>First impression</p>" {
		t.Errorf("expected content from head version, got %q", loaded.Content)
	}
}

func TestUpdateDocumentAppendsVersion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>v1</p>"})

	content := "<p>v2</p>"
	status := store.StatusApproved
	updated, err := svc.UpdateDocument(ctx, doc.ID, UpdateDocumentInput{Content: &content, Status: &status})
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}
	if updated.Content != "<p>v2</p>" || updated.Status != store.StatusApproved {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// Saving identical content still appends a version.
	if _, err := svc.UpdateDocument(ctx, doc.ID, UpdateDocumentInput{Content: &content}); err != nil {
		t.Fatalf("unchanged UpdateDocument failed: %v", err)
	}

	versions, err := svc.ListVersions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}

	newest, err := svc.GetVersion(ctx, doc.ID, versions[0].ID)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if newest.Content != "<p>v2</p>" {
		t.Errorf("expected newest version first, got %q", newest.Content)
	}
	oldest, err := svc.GetVersion(ctx, doc.ID, versions[len(versions)-1].ID)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if oldest.Content != "<p>v1</p>" {
		t.Errorf("expected oldest version to hold the original content, got %q", oldest.Content)
	}
}

func TestUpdateDocumentRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t)
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>v1</p>"})

	bad := "archived"
	_, err := svc.UpdateDocument(context.Background(), doc.ID, UpdateDocumentInput{Status: &bad})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
}

func TestGetVersionUnknownID(t *testing.T) {
	svc := newTestService(t)
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>v1</p>"})

	_, err := svc.GetVersion(context.Background(), doc.ID, "fffffff")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 404 || domainErr.Code != "VERSION_NOT_FOUND" {
		t.Errorf("unexpected error %+v", domainErr)
	}
}

func TestDeleteDocumentRemovesEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>v1</p>"})

	if err := svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := svc.GetDocument(ctx, doc.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
	if err := svc.DeleteDocument(ctx, doc.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows on second delete, got %v", err)
	}
}

func TestCommentsAppendInOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", EvaluatorID: "ana", Content: "<p>v1</p>"})

	if _, err := svc.AddComment(ctx, doc.ID, "first"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if _, err := svc.AddComment(ctx, doc.ID, "second"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	comments, err := svc.ListComments(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].Text != "first" || comments[1].Text != "second" {
		t.Errorf("expected oldest first, got %q then %q", comments[0].Text, comments[1].Text)
	}
	if comments[0].Author != "ana" {
		t.Errorf("expected document evaluator as author, got %q", comments[0].Author)
	}
}

func TestAddCommentRejectsBlankText(t *testing.T) {
	svc := newTestService(t)
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", Content: "<p>v1</p>"})

	_, err := svc.AddComment(context.Background(), doc.ID, "   ")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
}

func TestExportHTMLThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	doc := mustCreate(t, svc, CreateDocumentInput{CandidateID: "7", PositionID: "3", EvaluatorID: "ana", Content: "<p>Strong candidate</p>"})
	if _, err := svc.AddComment(ctx, doc.ID, "agreed"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	result, err := svc.Export(ctx, doc.ID, export.FormatHTML)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.MimeType != "text/html; charset=utf-8" {
		t.Errorf("unexpected mime type %q", result.MimeType)
	}
	if len(result.Data) == 0 {
		t.Error("expected rendered output")
	}
}
