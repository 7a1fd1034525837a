// Package adf translates Jira descriptions and comment bodies into GitHub
// flavored markdown. Jira delivers either a plain or wiki-markup string or an
// Atlassian Document Format (ADF) tree; both end up as markdown.
package adf

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one element of a parsed document. The concrete types below form a
// closed set; anything Jira sends that is not modeled becomes an Unknown.
type Node interface {
	node()
}

// Document is the root of a parsed ADF tree.
type Document struct {
	Blocks []Node
}

// Text is a run of characters with inline formatting marks.
type Text struct {
	Text  string
	Marks []string // strong, em, code, strike, underline
}

// Paragraph holds inline children.
type Paragraph struct {
	Children []Node
}

// Heading is a section title with level 1..6.
type Heading struct {
	Level    int
	Children []Node
}

// List is a bullet or ordered list.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
}

// ListItem holds the blocks of a single list entry.
type ListItem struct {
	Children []Node
}

// Link points to Href; Children are the visible label (may be empty).
type Link struct {
	Href     string
	Children []Node
}

// CodeBlock is a fenced block of preformatted text.
type CodeBlock struct {
	Language string
	Text     string
}

// Blockquote wraps quoted blocks.
type Blockquote struct {
	Children []Node
}

// Rule is a horizontal divider.
type Rule struct{}

// HardBreak is a forced line break inside a paragraph.
type HardBreak struct{}

// Mention references a Jira user by display name.
type Mention struct {
	Name string
}

// Table is a grid of cells; header cells are flagged.
type Table struct {
	Rows [][]TableCell
}

// TableCell is a single table cell.
type TableCell struct {
	Header   bool
	Children []Node
}

// Unknown is any node type without a dedicated mapping. It renders as its
// visible text.
type Unknown struct {
	Type     string
	Text     string
	Children []Node
}

func (Paragraph) node()  {}
func (Heading) node()    {}
func (List) node()       {}
func (Text) node()       {}
func (Link) node()       {}
func (CodeBlock) node()  {}
func (Blockquote) node() {}
func (Rule) node()       {}
func (HardBreak) node()  {}
func (Mention) node()    {}
func (Table) node()      {}
func (Unknown) node()    {}

// rawNode mirrors the ADF wire format.
type rawNode struct {
	Type    string         `json:"type"`
	Content []rawNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []rawMark      `json:"marks,omitempty"`
}

type rawMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes an ADF JSON tree. A root that is not of type "doc" is
// wrapped as the single block of a document.
func Parse(data []byte) (Document, error) {
	var root rawNode
	if err := json.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	if root.Type == "doc" {
		return Document{Blocks: convertAll(root.Content)}, nil
	}
	return Document{Blocks: []Node{convert(root)}}, nil
}

func convertAll(raws []rawNode) []Node {
	out := make([]Node, 0, len(raws))
	for _, r := range raws {
		out = append(out, convert(r))
	}
	return out
}

func convert(r rawNode) Node {
	switch r.Type {
	case "paragraph":
		return Paragraph{Children: convertAll(r.Content)}

	case "heading":
		return Heading{Level: intAttr(r.Attrs, "level", 2), Children: convertAll(r.Content)}

	case "bulletList", "orderedList":
		l := List{Ordered: r.Type == "orderedList", Start: intAttr(r.Attrs, "order", 1)}
		for _, item := range r.Content {
			if item.Type == "listItem" {
				l.Items = append(l.Items, ListItem{Children: convertAll(item.Content)})
				continue
			}
			l.Items = append(l.Items, ListItem{Children: []Node{convert(item)}})
		}
		return l

	case "codeBlock":
		var sb strings.Builder
		for _, c := range r.Content {
			sb.WriteString(c.Text)
		}
		return CodeBlock{Language: stringAttr(r.Attrs, "language"), Text: sb.String()}

	case "blockquote":
		return Blockquote{Children: convertAll(r.Content)}

	case "rule":
		return Rule{}

	case "hardBreak":
		return HardBreak{}

	case "mention":
		return Mention{Name: strings.TrimPrefix(stringAttr(r.Attrs, "text"), "@")}

	case "emoji":
		text := stringAttr(r.Attrs, "text")
		if text == "" {
			text = stringAttr(r.Attrs, "shortName")
		}
		return Text{Text: text}

	case "inlineCard", "blockCard", "embedCard":
		return Link{Href: stringAttr(r.Attrs, "url")}

	case "text":
		var marks []string
		href := ""
		linked := false
		for _, m := range r.Marks {
			if m.Type == "link" {
				href = stringAttr(m.Attrs, "href")
				linked = true
				continue
			}
			marks = append(marks, m.Type)
		}
		t := Text{Text: r.Text, Marks: marks}
		if linked {
			return Link{Href: href, Children: []Node{t}}
		}
		return t

	case "table":
		var t Table
		for _, row := range r.Content {
			cells := make([]TableCell, 0, len(row.Content))
			for _, cell := range row.Content {
				cells = append(cells, TableCell{
					Header:   cell.Type == "tableHeader",
					Children: convertAll(cell.Content),
				})
			}
			t.Rows = append(t.Rows, cells)
		}
		return t

	default:
		return Unknown{Type: r.Type, Text: r.Text, Children: convertAll(r.Content)}
	}
}

// intAttr reads a numeric attribute; JSON numbers decode as float64.
func intAttr(attrs map[string]any, key string, def int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

func stringAttr(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}
