package summary

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pevans/newsdigest/article"
)

//go:embed prompt.tmpl
var defaultPrompt string

// PromptData is the data a prompt template is executed with.
type PromptData struct {
	Date        string // YYYY-MM-DD
	DisplayDate string // 2026年10月18日
	Articles    []PromptArticle
}

// PromptArticle is one article as seen by the prompt template.
type PromptArticle struct {
	Index   int
	Title   string
	Author  string
	URL     string
	Content string
}

// LoadTemplate parses the prompt template at path. An empty path or a
// missing file selects the built-in template.
func LoadTemplate(path string) (*template.Template, error) {
	text := defaultPrompt
	name := "default"

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text = string(data)
			name = path
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read prompt template: %w", err)
		}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// NewPromptData builds template data from the records of one day.
func NewPromptData(d article.Date, records []article.Record) PromptData {
	data := PromptData{
		Date:        d.String(),
		DisplayDate: fmt.Sprintf("%d年%d月%d日", d.Year, int(d.Month), d.Day),
		Articles:    make([]PromptArticle, 0, len(records)),
	}
	for i, rec := range records {
		data.Articles = append(data.Articles, PromptArticle{
			Index:   i + 1,
			Title:   rec.Title,
			Author:  rec.Author,
			URL:     rec.URL,
			Content: rec.Content,
		})
	}
	return data
}

// RenderPrompt executes tmpl with data.
func RenderPrompt(tmpl *template.Template, data PromptData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}
