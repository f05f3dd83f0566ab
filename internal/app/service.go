package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rhesult/api/internal/codec"
	"rhesult/api/internal/config"
	"rhesult/api/internal/export"
	"rhesult/api/internal/gitrepo"
	"rhesult/api/internal/store"
	"rhesult/api/internal/util"
)

type CreateDocumentInput struct {
	CandidateID string `json:"candidateId"`
	PositionID  string `json:"positionId"`
	EvaluatorID string `json:"evaluatorId"`
	Content     string `json:"content"`
	Status      string `json:"status"`
}

// UpdateDocumentInput is a partial update: nil fields are untouched.
type UpdateDocumentInput struct {
	Content *string `json:"content"`
	Status  *string `json:"status"`
}

type DocumentPayload struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	PositionID  string    `json:"positionId"`
	EvaluatorID string    `json:"evaluatorId,omitempty"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CommentPayload struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type VersionPayload struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type VersionContentPayload struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

type dataStore interface {
	Ping(context.Context) error
	ListDocuments(context.Context) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) error
	UpdateDocumentStatus(context.Context, string, string) error
	TouchDocument(context.Context, string) error
	DeleteDocument(context.Context, string) error
	ListComments(context.Context, string) ([]store.Comment, error)
	InsertComment(context.Context, store.Comment) error
}

type versionStore interface {
	EnsureRepo(documentID string, initial gitrepo.Snapshot, author string) error
	Commit(documentID string, snap gitrepo.Snapshot, author string) (store.Version, error)
	Head(documentID string) (gitrepo.Snapshot, error)
	SnapshotAt(documentID, versionID string) (gitrepo.Snapshot, error)
	History(documentID string, limit int) ([]store.Version, error)
	Remove(documentID string) error
}

// versionListLimit caps the history returned by the list endpoint.
const versionListLimit = 100

type Service struct {
	cfg      config.Config
	store    dataStore
	versions versionStore
	exporter *export.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, versions *gitrepo.Service) *Service {
	s := &Service{cfg: cfg, store: dataStore, versions: versions}
	s.exporter = export.NewService(&exportAdapter{service: s})
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListDocuments(ctx context.Context) ([]DocumentPayload, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentPayload, 0, len(docs))
	for _, doc := range docs {
		snap, err := s.versions.Head(doc.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, toDocumentPayload(doc, snap.Content))
	}
	return items, nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (DocumentPayload, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return DocumentPayload{}, err
	}
	snap, err := s.versions.Head(doc.ID)
	if err != nil {
		return DocumentPayload{}, err
	}
	return toDocumentPayload(doc, snap.Content), nil
}

func (s *Service) CreateDocument(ctx context.Context, input CreateDocumentInput) (DocumentPayload, error) {
	candidateID := strings.TrimSpace(input.CandidateID)
	positionID := strings.TrimSpace(input.PositionID)
	if candidateID == "" {
		return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "candidateId is required", nil)
	}
	if positionID == "" {
		return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "positionId is required", nil)
	}
	if codec.ToPlainText(input.Content) == "" {
		return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content must not be empty", nil)
	}

	status := input.Status
	if status == "" {
		status = store.StatusPending
	}
	if !store.ValidStatus(status) {
		return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", map[string]string{"status": status})
	}

	doc := store.Document{
		ID:          util.NewID("doc"),
		CandidateID: candidateID,
		PositionID:  positionID,
		EvaluatorID: strings.TrimSpace(input.EvaluatorID),
		Status:      status,
		UpdatedAt:   time.Now(),
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return DocumentPayload{}, err
	}
	if err := s.versions.EnsureRepo(doc.ID, gitrepo.Snapshot{Content: input.Content, Status: status}, authorFor(doc)); err != nil {
		return DocumentPayload{}, err
	}
	return toDocumentPayload(doc, input.Content), nil
}

func (s *Service) UpdateDocument(ctx context.Context, id string, input UpdateDocumentInput) (DocumentPayload, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return DocumentPayload{}, err
	}
	snap, err := s.versions.Head(doc.ID)
	if err != nil {
		return DocumentPayload{}, err
	}

	if input.Content != nil {
		if codec.ToPlainText(*input.Content) == "" {
			return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content must not be empty", nil)
		}
		snap.Content = *input.Content
	}
	if input.Status != nil {
		if !store.ValidStatus(*input.Status) {
			return DocumentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", map[string]string{"status": *input.Status})
		}
		snap.Status = *input.Status
		if err := s.store.UpdateDocumentStatus(ctx, id, *input.Status); err != nil {
			return DocumentPayload{}, err
		}
		doc.Status = *input.Status
	} else {
		if err := s.store.TouchDocument(ctx, id); err != nil {
			return DocumentPayload{}, err
		}
	}

	// Every acknowledged save appends a version, deduplication is
	// deliberately absent.
	if _, err := s.versions.Commit(doc.ID, snap, authorFor(doc)); err != nil {
		return DocumentPayload{}, err
	}

	doc.UpdatedAt = time.Now()
	return toDocumentPayload(doc, snap.Content), nil
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	return s.versions.Remove(id)
}

func (s *Service) ListComments(ctx context.Context, documentID string) ([]CommentPayload, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]CommentPayload, 0, len(comments))
	for _, comment := range comments {
		items = append(items, CommentPayload(comment))
	}
	return items, nil
}

func (s *Service) AddComment(ctx context.Context, documentID, text string) (CommentPayload, error) {
	if strings.TrimSpace(text) == "" {
		return CommentPayload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return CommentPayload{}, err
	}

	comment := store.Comment{
		ID:         util.NewID("cmt"),
		DocumentID: documentID,
		Author:     authorFor(doc),
		Text:       text,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return CommentPayload{}, err
	}
	return CommentPayload(comment), nil
}

func (s *Service) ListVersions(ctx context.Context, documentID string) ([]VersionPayload, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	versions, err := s.versions.History(documentID, versionListLimit)
	if err != nil {
		return nil, err
	}
	items := make([]VersionPayload, 0, len(versions))
	for _, version := range versions {
		items = append(items, VersionPayload(version))
	}
	return items, nil
}

func (s *Service) GetVersion(ctx context.Context, documentID, versionID string) (VersionContentPayload, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return VersionContentPayload{}, err
	}
	snap, err := s.versions.SnapshotAt(documentID, versionID)
	if err != nil {
		return VersionContentPayload{}, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found", nil)
	}
	return VersionContentPayload{Content: snap.Content, Status: snap.Status}, nil
}

func (s *Service) Export(ctx context.Context, documentID string, format export.Format) (*export.Result, error) {
	if s.cfg.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ExportTimeout)
		defer cancel()
	}
	return s.exporter.Export(ctx, export.Request{DocumentID: documentID, Format: format, IncludeComments: true})
}

func toDocumentPayload(doc store.Document, content string) DocumentPayload {
	return DocumentPayload{
		ID:          doc.ID,
		CandidateID: doc.CandidateID,
		PositionID:  doc.PositionID,
		EvaluatorID: doc.EvaluatorID,
		Content:     content,
		Status:      doc.Status,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// authorFor names the acting evaluator for version commits and
// comments. Authentication is out of scope, so the document's
// evaluator reference is the only identity available.
func authorFor(doc store.Document) string {
	if doc.EvaluatorID != "" {
		return doc.EvaluatorID
	}
	return "evaluator"
}

// exportAdapter feeds the export service from the app service.
type exportAdapter struct {
	service *Service
}

func (a *exportAdapter) GetDocument(ctx context.Context, id string) (export.DocumentInfo, error) {
	doc, err := a.service.GetDocument(ctx, id)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:          doc.ID,
		CandidateID: doc.CandidateID,
		PositionID:  doc.PositionID,
		EvaluatorID: doc.EvaluatorID,
		Content:     doc.Content,
		Status:      doc.Status,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func (a *exportAdapter) ListComments(ctx context.Context, documentID string) ([]export.CommentInfo, error) {
	comments, err := a.service.ListComments(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]export.CommentInfo, 0, len(comments))
	for _, comment := range comments {
		items = append(items, export.CommentInfo{
			Author:    comment.Author,
			Text:      comment.Text,
			CreatedAt: comment.CreatedAt,
		})
	}
	return items, nil
}
