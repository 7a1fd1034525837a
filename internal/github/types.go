package github

// IssueRequest is the writable part of an issue.
type IssueRequest struct {
	Title    string
	Body     string
	Labels   []string
	Assignee string
}

func (r IssueRequest) createBody() map[string]any {
	body := map[string]any{
		"title":  r.Title,
		"body":   r.Body,
		"labels": nonNil(r.Labels),
	}
	if r.Assignee != "" {
		body["assignees"] = []string{r.Assignee}
	}
	return body
}

// updateBody always sends assignees so an unassigned Jira issue clears the
// GitHub assignee too.
func (r IssueRequest) updateBody() map[string]any {
	assignees := []string{}
	if r.Assignee != "" {
		assignees = []string{r.Assignee}
	}
	return map[string]any{
		"title":     r.Title,
		"body":      r.Body,
		"labels":    nonNil(r.Labels),
		"assignees": assignees,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Issue is the subset of the GitHub issue response this service reads.
type Issue struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// Comment is the subset of the GitHub comment response this service reads.
type Comment struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}
