// Package render turns translated Jira content into GitHub issue and comment
// bodies using text templates.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var defaultFS embed.FS

const (
	issueTemplate   = "issue.md.tmpl"
	commentTemplate = "comment.md.tmpl"
)

// IssueData feeds the issue body template. Assignee and Reporter are already
// rendered references (an @mention or a plain name).
type IssueData struct {
	Key                string
	URL                string
	Title              string
	Description        string
	AcceptanceCriteria string
	Priority           string
	Status             string
	Assignee           string
	Reporter           string
}

// CommentData feeds the comment body template.
type CommentData struct {
	IssueKey  string
	IssueURL  string
	CommentID string
	Author    string
	Body      string
	Created   string
}

// Renderer holds the parsed issue and comment templates.
type Renderer struct {
	issue   *template.Template
	comment *template.Template
}

// New parses the templates. Empty paths select the built-in templates.
func New(issuePath, commentPath string) (*Renderer, error) {
	issue, err := load(issueTemplate, issuePath)
	if err != nil {
		return nil, err
	}
	comment, err := load(commentTemplate, commentPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{issue: issue, comment: comment}, nil
}

// Default returns a Renderer with the built-in templates.
func Default() *Renderer {
	r, err := New("", "")
	if err != nil {
		panic(err) // embedded templates are fixed at build time
	}
	return r
}

func load(name, path string) (*template.Template, error) {
	var (
		src []byte
		err error
	)
	if strings.TrimSpace(path) == "" {
		src, err = defaultFS.ReadFile("templates/" + name)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(TemplateFuncMap()).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Issue renders an issue body.
func (r *Renderer) Issue(d IssueData) (string, error) {
	return execute(r.issue, d)
}

// Comment renders a comment body.
func (r *Renderer) Comment(d CommentData) (string, error) {
	return execute(r.comment, d)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template error: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
