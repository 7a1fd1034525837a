package mapping

// DefaultLabelMappings is used when the configuration does not provide its
// own table.
var DefaultLabelMappings = map[string]string{
	"bug":             "type:bug",
	"feature":         "type:feature",
	"enhancement":     "type:enhancement",
	"backend":         "component:backend",
	"frontend":        "component:frontend",
	"high-priority":   "priority:high",
	"medium-priority": "priority:medium",
	"low-priority":    "priority:low",
}

// LabelMapper translates Jira labels into GitHub labels.
type LabelMapper struct {
	table   map[string]string
	trigger string
	limit   int
}

// NewLabelMapper returns a mapper using table for substitutions. The trigger
// label is always dropped. A limit of zero means unlimited.
func NewLabelMapper(table map[string]string, trigger string, limit int) *LabelMapper {
	t := make(map[string]string, len(table))
	for k, v := range table {
		t[k] = v
	}
	return &LabelMapper{table: t, trigger: trigger, limit: limit}
}

// Map returns the GitHub labels for labels, preserving input order and
// collapsing duplicates. Lookups are exact-match.
func (m *LabelMapper) Map(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))

	for _, l := range labels {
		if l == "" || l == m.trigger {
			continue
		}
		if mapped, ok := m.table[l]; ok {
			l = mapped
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
		if m.limit > 0 && len(out) == m.limit {
			break
		}
	}
	return out
}

// HasTrigger reports whether labels contain the trigger label.
func (m *LabelMapper) HasTrigger(labels []string) bool {
	for _, l := range labels {
		if l == m.trigger {
			return true
		}
	}
	return false
}

// Trigger returns the configured trigger label.
func (m *LabelMapper) Trigger() string {
	return m.trigger
}
