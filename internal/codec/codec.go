// Package codec converts between the legacy plain-text assessment format
// and the HTML dialect the editor surface consumes.
package codec

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern = regexp.MustCompile(`\*([^*]+)\*`)
)

// IsRich reports whether content is already in the editor's HTML dialect.
func IsRich(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "<")
}

// ToEditable upgrades a legacy plain-text assessment to editor HTML.
// Rich or empty content passes through unchanged, which makes the
// conversion idempotent. The upgrade is a best-effort, one-way mapping
// of the minimal dialect old records used (#/##/### headings, **bold**,
// *italic*, "- " bullets, blank-line paragraphs); it is not a markdown
// parser and never fails.
func ToEditable(stored string) string {
	if strings.TrimSpace(stored) == "" || IsRich(stored) {
		return stored
	}

	var out strings.Builder
	lines := strings.Split(strings.ReplaceAll(stored, "\r\n", "\n"), "\n")

	var paragraph []string
	var bullets []string

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		out.WriteString("<p>")
		out.WriteString(renderInline(strings.Join(paragraph, " ")))
		out.WriteString("</p>")
		paragraph = nil
	}
	flushBullets := func() {
		if len(bullets) == 0 {
			return
		}
		out.WriteString("<ul>")
		for _, item := range bullets {
			out.WriteString("<li>")
			out.WriteString(renderInline(item))
			out.WriteString("</li>")
		}
		out.WriteString("</ul>")
		bullets = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushBullets()
			flushParagraph()
		case strings.HasPrefix(trimmed, "### "):
			flushBullets()
			flushParagraph()
			out.WriteString("<h3>" + renderInline(strings.TrimPrefix(trimmed, "### ")) + "</h3>")
		case strings.HasPrefix(trimmed, "## "):
			flushBullets()
			flushParagraph()
			out.WriteString("<h2>" + renderInline(strings.TrimPrefix(trimmed, "## ")) + "</h2>")
		case strings.HasPrefix(trimmed, "# "):
			flushBullets()
			flushParagraph()
			out.WriteString("<h1>" + renderInline(strings.TrimPrefix(trimmed, "# ")) + "</h1>")
		case strings.HasPrefix(trimmed, "- "):
			flushParagraph()
			bullets = append(bullets, strings.TrimPrefix(trimmed, "- "))
		default:
			flushBullets()
			paragraph = append(paragraph, trimmed)
		}
	}
	flushBullets()
	flushParagraph()

	return out.String()
}

// renderInline escapes text and applies bold/italic marks.
func renderInline(text string) string {
	escaped := html.EscapeString(text)
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = italicPattern.ReplaceAllString(escaped, "<em>$1</em>")
	return escaped
}

var blockBreaks = map[string]bool{
	"/p": true, "/h1": true, "/h2": true, "/h3": true, "/h4": true,
	"/li": true, "/ul": true, "/ol": true, "/blockquote": true,
	"br": true, "br/": true,
}

// ToPlainText strips markup down to readable text. It exists only for
// character counting and non-empty validation; formatting fidelity is
// not a goal. Malformed markup degrades to best-effort output.
func ToPlainText(markup string) string {
	var out strings.Builder
	var tag strings.Builder
	inTag := false

	for _, r := range markup {
		switch {
		case inTag:
			if r == '>' {
				name := strings.ToLower(strings.TrimSpace(tag.String()))
				if idx := strings.IndexAny(name, " \t\n"); idx >= 0 {
					name = name[:idx]
				}
				if blockBreaks[name] {
					out.WriteByte('\n')
				}
				tag.Reset()
				inTag = false
			} else {
				tag.WriteRune(r)
			}
		case r == '<':
			inTag = true
		default:
			out.WriteRune(r)
		}
	}

	text := html.UnescapeString(out.String())
	// Collapse runs of blank lines left behind by nested blocks.
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
