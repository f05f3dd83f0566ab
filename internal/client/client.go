// Package client is the HTTP client for the assessment API. The
// session engine talks to the backend exclusively through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Assessment status values. The enumeration is closed but carries no
// transition graph: any value may be set at any time.
const (
	StatusPending      = "pending"
	StatusApproved     = "approved"
	StatusRejected     = "rejected"
	StatusNeedsChanges = "needs-changes"
)

type Document struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	PositionID  string    `json:"positionId"`
	EvaluatorID string    `json:"evaluatorId,omitempty"`
	Content     string    `json:"content"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Comment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Version is one immutable snapshot reference, newest first in lists.
type Version struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// VersionContent is the payload of a single snapshot.
type VersionContent struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

type CreateDocumentInput struct {
	CandidateID string `json:"candidateId"`
	PositionID  string `json:"positionId"`
	EvaluatorID string `json:"evaluatorId,omitempty"`
	Content     string `json:"content"`
	Status      string `json:"status"`
}

// UpdateDocumentInput is a partial update; nil fields are left alone.
type UpdateDocumentInput struct {
	Content *string `json:"content,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient wraps a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var envelope struct {
		Documents []Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Documents, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, "/documents/"+id, nil, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (c *Client) CreateDocument(ctx context.Context, input CreateDocumentInput) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodPost, "/documents", input, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (c *Client) UpdateDocument(ctx context.Context, id string, input UpdateDocumentInput) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodPut, "/documents/"+id, input, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+id, nil, nil)
}

func (c *Client) ListComments(ctx context.Context, documentID string) ([]Comment, error) {
	var envelope struct {
		Comments []Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents/"+documentID+"/comments", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Comments, nil
}

func (c *Client) AddComment(ctx context.Context, documentID, text string) (Comment, error) {
	var comment Comment
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, "/documents/"+documentID+"/comments", body, &comment); err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (c *Client) ListVersions(ctx context.Context, documentID string) ([]Version, error) {
	var envelope struct {
		Versions []Version `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents/"+documentID+"/versions", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Versions, nil
}

func (c *Client) GetVersion(ctx context.Context, documentID, versionID string) (VersionContent, error) {
	var content VersionContent
	if err := c.do(ctx, http.MethodGet, "/documents/"+documentID+"/versions/"+versionID, nil, &content); err != nil {
		return VersionContent{}, err
	}
	return content, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Error
	}
	if apiErr.Code == "" {
		apiErr.Code = "SERVER_ERROR"
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
