// Package export renders an assessment document, comment thread
// included, to standalone HTML or PDF for sharing outside the
// platform.
package export

import (
	"context"
	"fmt"
	"html/template"
)

type Service struct {
	source DataSource
}

func NewService(source DataSource) *Service {
	return &Service{source: source}
}

func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.source.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	data := TemplateData{
		CandidateID: doc.CandidateID,
		PositionID:  doc.PositionID,
		Evaluator:   doc.EvaluatorID,
		Status:      doc.Status,
		ContentHTML: template.HTML(doc.Content),
		UpdatedAt:   doc.UpdatedAt,
	}
	if data.Evaluator == "" {
		data.Evaluator = "evaluator"
	}

	if req.IncludeComments {
		comments, err := s.source.ListComments(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		for _, comment := range comments {
			data.Comments = append(data.Comments, TemplateComment(comment))
		}
	}

	html, err := RenderAssessmentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render assessment html: %w", err)
	}

	name := fmt.Sprintf("assessment-%s-%s", doc.CandidateID, doc.PositionID)

	switch req.Format {
	case FormatPDF:
		return exportPDF(ctx, html, name)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(name) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
