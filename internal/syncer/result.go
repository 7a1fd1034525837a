package syncer

// Outcome is what happened to one unit of work.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeSkipped covers events that are not eligible: no trigger label,
	// comments on unsynced issues and ignored event kinds.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDuplicate marks a comment that was already mirrored.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeConflict marks a lost race against another writer.
	OutcomeConflict Outcome = "conflict"
	OutcomeError    Outcome = "error"
)

// Result describes the handling of one issue or comment event. It is safe
// to return to webhook callers.
type Result struct {
	Kind         string  `json:"kind"`
	IssueKey     string  `json:"issue,omitempty"`
	CommentID    string  `json:"comment,omitempty"`
	Outcome      Outcome `json:"outcome"`
	Reason       string  `json:"reason,omitempty"`
	GitHubNumber int     `json:"github_issue,omitempty"`
	GitHubURL    string  `json:"github_url,omitempty"`
}

// Counts tallies outcomes of one kind of work.
type Counts struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomeCreated, OutcomeUpdated:
		c.Synced++
	case OutcomeError, OutcomeConflict:
		c.Errors++
	default:
		c.Skipped++
	}
}

// Summary reports one scheduled run. Per-item failures are counted here and
// never abort the run.
type Summary struct {
	RunID string `json:"run_id"`
	Counts
	Comments Counts   `json:"comments"`
	Failed   []string `json:"failed,omitempty"`
	Purged   int      `json:"purged"`
	Duration string   `json:"duration"`
}
