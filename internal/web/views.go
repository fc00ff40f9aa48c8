package web

import (
	"embed"
	"html/template"
	"time"

	"chickiegpt/internal/domain"
)

//go:embed templates
var templateFS embed.FS

// viewModel is the typed payload handed to the page template. The template
// renders either the chat pane or the facts pane depending on Page.
type viewModel struct {
	Page          string // "chat" or "facts"
	Conversations []domain.Conversation
	CurrentID     int64
	CurrentTitle  string
	Messages      []domain.Message
	Facts         []domain.Fact
	FactsAuthed   bool
	FactsError    string
	Error         string
}

func parseTemplates() (*template.Template, error) {
	return template.New("page.html").Funcs(template.FuncMap{
		"stamp": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
	}).ParseFS(templateFS, "templates/*.html")
}
