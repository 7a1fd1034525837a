package syncer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gi8lino/jiramirror/internal/adf"
	"github.com/gi8lino/jiramirror/internal/github"
	"github.com/gi8lino/jiramirror/internal/hash"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/render"
)

// translated is the GitHub side of a Jira issue plus its fingerprint.
type translated struct {
	request     github.IssueRequest
	fingerprint string
}

// translate builds the GitHub issue for a Jira issue. Identity lookups go
// through the session cache; everything else is pure.
func (o *Orchestrator) translate(ctx context.Context, session *mapping.IdentitySession, issue jira.Issue) (translated, error) {
	f := issue.Fields
	assignee, err := o.resolve(ctx, session, f.Assignee)
	if err != nil {
		return translated{}, fmt.Errorf("resolve assignee: %w", err)
	}
	reporter, err := o.resolve(ctx, session, f.Reporter)
	if err != nil {
		return translated{}, fmt.Errorf("resolve reporter: %w", err)
	}

	var acceptance string
	if o.opts.AcceptanceCriteriaField != "" {
		acceptance = adf.TranslateOr(f.Custom(o.opts.AcceptanceCriteriaField), "")
	}

	var status string
	if f.Status != nil {
		status = f.Status.Name
	}

	title := truncateTitle(f.Summary, o.opts.MaxTitleLength)
	body, err := o.renderer.Issue(render.IssueData{
		Key:                issue.Key,
		URL:                o.jira.BrowseURL(issue.Key),
		Title:              title,
		Description:        adf.Translate(f.Description),
		AcceptanceCriteria: acceptance,
		Priority:           f.PriorityName(),
		Status:             status,
		Assignee:           assignee.Reference(),
		Reporter:           reporter.Reference(),
	})
	if err != nil {
		return translated{}, err
	}

	req := github.IssueRequest{
		Title:    title,
		Body:     body,
		Labels:   o.labels.Map(f.Labels),
		Assignee: assignee.Login,
	}
	return translated{
		request: req,
		fingerprint: hash.Fingerprint(hash.Content{
			Title:    req.Title,
			Body:     req.Body,
			Labels:   req.Labels,
			Assignee: req.Assignee,
		}),
	}, nil
}

// resolve maps a Jira user under the per-call deadline. An error means
// GitHub could not confirm the login; the caller must not write a body
// built without it.
func (o *Orchestrator) resolve(ctx context.Context, session *mapping.IdentitySession, u *mapping.JiraUser) (mapping.Identity, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return session.Resolve(ctx, u)
}

// truncateTitle collapses whitespace and cuts s to limit runes.
func truncateTitle(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return noTitle
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
