package adf

import (
	"regexp"
	"strings"
)

var (
	wikiCodeFence = regexp.MustCompile(`^\{(code|noformat)(?::([^}]*))?\}$`)
	wikiHeading   = regexp.MustCompile(`^h([1-6])\.\s+(.*)$`)
	wikiQuote     = regexp.MustCompile(`^bq\.\s+(.*)$`)
	wikiRule      = regexp.MustCompile(`^-{4,}$`)
	wikiList      = regexp.MustCompile(`^([*#]+|-)\s+(.*)$`)

	wikiMono     = regexp.MustCompile(`\{\{(.+?)\}\}`)
	wikiBold     = regexp.MustCompile(`(^|[\s(])\*([^*\s][^*]*?)\*([\s).,:;!?]|$)`)
	wikiItalic   = regexp.MustCompile(`(^|[\s(])_([^_\s][^_]*?)_([\s).,:;!?]|$)`)
	wikiLabelURL = regexp.MustCompile(`\[([^|\]]+)\|([^\]]+)\]`)
	wikiBareURL  = regexp.MustCompile(`\[(https?://[^\]\s]+)\]`)
)

// FromWiki converts Jira wiki markup (or plain text, which passes through
// mostly untouched) into markdown.
func FromWiki(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	inCode := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := wikiCodeFence.FindStringSubmatch(trimmed); m != nil {
			if inCode {
				out = append(out, "```")
				inCode = false
				continue
			}
			lang := m[2]
			if i := strings.Index(lang, "|"); i >= 0 {
				lang = lang[:i]
			}
			if strings.Contains(lang, "=") {
				lang = ""
			}
			out = append(out, "```"+lang)
			inCode = true
			continue
		}
		if inCode {
			out = append(out, line)
			continue
		}
		out = append(out, wikiLine(trimmed))
	}
	if inCode {
		out = append(out, "```")
	}

	return strings.Join(out, "\n")
}

func wikiLine(line string) string {
	if m := wikiHeading.FindStringSubmatch(line); m != nil {
		return strings.Repeat("#", int(m[1][0]-'0')) + " " + wikiInline(m[2])
	}
	if m := wikiQuote.FindStringSubmatch(line); m != nil {
		return "> " + wikiInline(m[1])
	}
	if wikiRule.MatchString(line) {
		return "---"
	}
	if m := wikiList.FindStringSubmatch(line); m != nil {
		return wikiListItem(m[1], m[2])
	}
	if strings.HasPrefix(line, "||") {
		cells := strings.Split(strings.Trim(line, "|"), "||")
		sep := make([]string, len(cells))
		for i := range cells {
			cells[i] = wikiInline(strings.TrimSpace(cells[i]))
			sep[i] = "---"
		}
		return "| " + strings.Join(cells, " | ") + " |\n| " + strings.Join(sep, " | ") + " |"
	}
	if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1 {
		cells := strings.Split(strings.Trim(line, "|"), "|")
		for i := range cells {
			cells[i] = wikiInline(strings.TrimSpace(cells[i]))
		}
		return "| " + strings.Join(cells, " | ") + " |"
	}
	return wikiInline(line)
}

// wikiListItem maps a nesting prefix like "*#" to an indented markdown item.
// Nested content is indented by the width of each parent marker.
func wikiListItem(prefix, text string) string {
	if prefix == "-" {
		return "- " + wikiInline(text)
	}
	var indent strings.Builder
	for _, c := range prefix[:len(prefix)-1] {
		if c == '#' {
			indent.WriteString("   ")
			continue
		}
		indent.WriteString("  ")
	}
	marker := "- "
	if prefix[len(prefix)-1] == '#' {
		marker = "1. "
	}
	return indent.String() + marker + wikiInline(text)
}

func wikiInline(s string) string {
	s = wikiMono.ReplaceAllString(s, "`$1`")
	s = wikiLabelURL.ReplaceAllString(s, "[$1]($2)")
	s = wikiBareURL.ReplaceAllString(s, "<$1>")
	s = wikiBold.ReplaceAllString(s, "$1**$2**$3")
	s = wikiItalic.ReplaceAllString(s, "$1*$2*$3")
	return s
}
