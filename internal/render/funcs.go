package render

import (
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// MarkerPrefix tags every mirrored body so mirrored content can be told
// apart from content written on GitHub.
const MarkerPrefix = "jira-sync:"

// TemplateFuncMap returns sprig's text helpers plus the Jira specific ones.
func TemplateFuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["formatJiraDate"] = formatJiraDate
	fm["marker"] = Marker
	return fm
}

// Marker renders the hidden HTML comment identifying a mirrored item.
func Marker(id string) string {
	return "<!-- " + MarkerPrefix + " " + id + " -->"
}

// formatJiraDate parses a Jira timestamp and returns it formatted using the provided layout.
// If parsing fails, the original string is returned.
func formatJiraDate(input, layout string) string {
	input = strings.Replace(input, "Z", "+0000", 1) // normalize timezone
	parsed, err := time.Parse("2006-01-02T15:04:05.000-0700", input)
	if err != nil {
		return input
	}
	return parsed.UTC().Format(layout)
}
