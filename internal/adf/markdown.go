package adf

import (
	"fmt"
	"strings"
)

// Render converts a parsed document into markdown.
func Render(doc Document) string {
	return strings.TrimSpace(renderBlocks(doc.Blocks))
}

// renderBlocks renders nodes as blocks separated by blank lines. Runs of
// inline nodes are grouped into one paragraph.
func renderBlocks(nodes []Node) string {
	var blocks []string
	var inline []Node

	flush := func() {
		if len(inline) == 0 {
			return
		}
		if s := renderInline(inline); strings.TrimSpace(s) != "" {
			blocks = append(blocks, s)
		}
		inline = nil
	}

	for _, n := range nodes {
		if isInline(n) {
			inline = append(inline, n)
			continue
		}
		flush()
		if s := renderBlock(n); strings.TrimSpace(s) != "" {
			blocks = append(blocks, s)
		}
	}
	flush()

	return strings.Join(blocks, "\n\n")
}

func isInline(n Node) bool {
	switch v := n.(type) {
	case Text, Link, Mention, HardBreak:
		return true
	case Unknown:
		return v.Text != "" && len(v.Children) == 0
	}
	return false
}

func renderBlock(n Node) string {
	switch v := n.(type) {
	case Paragraph:
		return renderInline(v.Children)

	case Heading:
		level := min(max(v.Level, 1), 6)
		return strings.Repeat("#", level) + " " + renderInline(v.Children)

	case List:
		return renderList(v)

	case CodeBlock:
		return "```" + v.Language + "\n" + v.Text + "\n```"

	case Blockquote:
		inner := renderBlocks(v.Children)
		lines := strings.Split(inner, "\n")
		for i, line := range lines {
			if line == "" {
				lines[i] = ">"
				continue
			}
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")

	case Rule:
		return "---"

	case Table:
		return renderTable(v)

	case Unknown:
		// Degrade to the visible text of the node and its children.
		parts := make([]string, 0, 2)
		if v.Text != "" {
			parts = append(parts, v.Text)
		}
		if s := renderBlocks(v.Children); s != "" {
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n\n")
	}
	return renderInline([]Node{n})
}

func renderList(l List) string {
	lines := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		marker := "- "
		if l.Ordered {
			marker = fmt.Sprintf("%d. ", l.Start+i)
		}
		pad := strings.Repeat(" ", len(marker))

		parts := make([]string, 0, len(item.Children))
		for _, child := range item.Children {
			var s string
			if isInline(child) {
				s = renderInline([]Node{child})
			} else {
				s = renderBlock(child)
			}
			if strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}

		body := strings.Split(strings.Join(parts, "\n"), "\n")
		for j, line := range body {
			switch {
			case j == 0:
				lines = append(lines, strings.TrimRight(marker+line, " "))
			case line == "":
				lines = append(lines, "")
			default:
				lines = append(lines, pad+line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func renderTable(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	cols := 0
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return ""
	}

	formatRow := func(row []TableCell) string {
		cells := make([]string, cols)
		for i, c := range row {
			text := strings.TrimSpace(renderBlocks(c.Children))
			cells[i] = strings.ReplaceAll(strings.ReplaceAll(text, "\n", " "), "|", `\|`)
		}
		return "| " + strings.Join(cells, " | ") + " |"
	}

	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}

	lines := []string{formatRow(t.Rows[0]), "| " + strings.Join(sep, " | ") + " |"}
	for _, row := range t.Rows[1:] {
		lines = append(lines, formatRow(row))
	}
	return strings.Join(lines, "\n")
}

func renderInline(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch v := n.(type) {
		case Text:
			b.WriteString(applyMarks(v.Text, v.Marks))
		case Link:
			label := renderInline(v.Children)
			switch {
			case v.Href == "":
				b.WriteString(label)
			case label == "":
				b.WriteString("<" + v.Href + ">")
			default:
				b.WriteString("[" + label + "](" + v.Href + ")")
			}
		case Mention:
			// Plain name: a Jira display name is not a GitHub login.
			b.WriteString(v.Name)
		case HardBreak:
			b.WriteString("\n")
		case Paragraph:
			b.WriteString(renderInline(v.Children))
		case Heading:
			b.WriteString(renderInline(v.Children))
		case CodeBlock:
			b.WriteString("`" + v.Text + "`")
		case Unknown:
			b.WriteString(v.Text)
			b.WriteString(renderInline(v.Children))
		default:
			b.WriteString(renderBlock(n))
		}
	}
	return b.String()
}

func applyMarks(text string, marks []string) string {
	if text == "" {
		return text
	}
	for _, m := range marks {
		switch m {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		}
	}
	return text
}
