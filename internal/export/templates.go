package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var assessmentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
	}

	templateContent, err := templateFS.ReadFile("templates/assessment.html")
	if err != nil {
		// Fallback to built-in template if file not found
		assessmentTemplate = template.Must(template.New("assessment").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	assessmentTemplate = template.Must(template.New("assessment").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for assessment template rendering
type TemplateData struct {
	CandidateID string
	PositionID  string
	Evaluator   string
	Status      string
	ContentHTML template.HTML
	UpdatedAt   time.Time
	Comments    []TemplateComment
}

// TemplateComment holds comment data for the template
type TemplateComment struct {
	Author    string
	Text      string
	CreatedAt time.Time
}

// RenderAssessmentHTML renders the assessment template with provided data
func RenderAssessmentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := assessmentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Assessment {{.CandidateID}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .status { text-transform: uppercase; font-weight: bold; }
    .comment { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>Candidate {{.CandidateID}} / Position {{.PositionID}}</h1>
  <div class="meta">
    <span class="status">{{.Status}}</span> |
    {{.Evaluator}} | {{.UpdatedAt.Format "Jan 2, 2006"}}
  </div>
  <div>{{.ContentHTML | safeHTML}}</div>
  {{if .Comments}}
  <h2>Comments</h2>
  {{range .Comments}}<div class="comment"><strong>{{.Author}}</strong> ({{.CreatedAt.Format "Jan 2, 2006"}}): {{.Text}}</div>{{end}}
  {{end}}
</body>
</html>`
