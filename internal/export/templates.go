package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var feedTemplate *template.Template

func init() {
	// Custom template functions
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/feed.html")
	if err != nil {
		// Fallback to built-in template if file not found
		feedTemplate = template.Must(template.New("feed").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	feedTemplate = template.Must(template.New("feed").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for feed template rendering
type TemplateData struct {
	Title       string
	Page        int
	TotalPages  int
	GeneratedAt time.Time
	Entries     []TemplateEntry
}

// TemplateEntry holds one feed entry for the template
type TemplateEntry struct {
	AuthorLabel        string
	IsCreator          bool
	CreatedAt          time.Time
	Text               string
	ReplyToAuthorLabel string
	ReplyToText        string
}

// RenderFeedHTML renders the feed template with provided data
func RenderFeedHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := feedTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 720px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .entry { padding: 1rem 0; border-bottom: 1px solid #ddd; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div>Page {{.Page}} of {{.TotalPages}}</div>
  {{range .Entries}}
  <div class="entry"><strong>{{.AuthorLabel}}</strong> {{formatDate .CreatedAt "Jan 2, 2006"}}<br>{{.Text}}</div>
  {{end}}
</body>
</html>`
