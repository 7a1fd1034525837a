package syncer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
)

// RunScheduledSync queries every issue carrying the trigger label and syncs
// each one. Only a failed query fails the run; per-issue and per-comment
// failures are counted in the summary.
func (o *Orchestrator) RunScheduledSync(ctx context.Context) (Summary, error) {
	start := o.now()
	summary := Summary{RunID: uuid.NewString()}
	log := o.logger.With("run", summary.RunID)

	jql := o.JQL()
	log.Info("scheduled sync started", "jql", jql)

	callCtx, cancel := o.boundedQuery(ctx)
	issues, err := o.jira.SearchIssues(callCtx, jql)
	cancel()
	if err != nil {
		log.Error("scheduled sync query failed", "error", err)
		return summary, fmt.Errorf("query jira issues: %w", err)
	}

	session := o.session()
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(o.opts.Concurrency)

	for _, issue := range issues {
		g.Go(func() error {
			res, comments := o.syncScheduled(ctx, session, issue)

			mu.Lock()
			defer mu.Unlock()
			summary.add(res.Outcome)
			if res.Outcome == OutcomeError || res.Outcome == OutcomeConflict {
				summary.Failed = append(summary.Failed, issue.Key)
			}
			for _, c := range comments {
				summary.Comments.add(c.Outcome)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	slices.Sort(summary.Failed)

	callCtx, cancel = o.bounded(ctx)
	purged, err := o.store.Purge(callCtx)
	cancel()
	if err != nil {
		log.Warn("purging expired sync records failed", "error", err)
	}
	summary.Purged = purged
	summary.Duration = o.now().Sub(start).Round(time.Millisecond).String()

	log.Info("scheduled sync finished",
		"issues", len(issues),
		"synced", summary.Synced,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
		"comments_synced", summary.Comments.Synced,
		"comments_errors", summary.Comments.Errors,
		"purged", summary.Purged,
		"duration", summary.Duration,
	)
	return summary, nil
}

// syncScheduled handles one issue of a scheduled run and, when enabled and
// the issue is linked, its comments.
func (o *Orchestrator) syncScheduled(ctx context.Context, session *mapping.IdentitySession, issue jira.Issue) (Result, []Result) {
	if !o.labels.HasTrigger(issue.Fields.Labels) {
		res := Result{Kind: "issue", IssueKey: issue.Key, Outcome: OutcomeSkipped, Reason: "trigger label absent"}
		o.recorder.Outcome(ctx, res.Kind, string(res.Outcome))
		return res, nil
	}

	// Errors are logged and carried in the result.
	res, _ := o.syncIssue(ctx, session, issue)
	if !o.opts.SyncComments {
		return res, nil
	}
	switch res.Outcome {
	case OutcomeCreated, OutcomeUpdated, OutcomeUnchanged:
	default:
		return res, nil
	}

	comments, err := o.issueComments(ctx, issue)
	if err != nil {
		o.logger.Error("listing jira comments failed", "issue", issue.Key, "error", err)
		return res, []Result{{Kind: "comment", IssueKey: issue.Key, Outcome: OutcomeError, Reason: "list comments failed"}}
	}

	out := make([]Result, 0, len(comments))
	for _, c := range comments {
		cres, _ := o.syncComment(ctx, session, issue.Key, c)
		out = append(out, cres)
	}
	return res, out
}

// issueComments returns the comments embedded in the search result, or
// fetches them when the embedded page is incomplete.
func (o *Orchestrator) issueComments(ctx context.Context, issue jira.Issue) ([]jira.Comment, error) {
	page := issue.Fields.Comment
	if page != nil && len(page.Comments) >= page.Total {
		return page.Comments, nil
	}
	callCtx, cancel := o.boundedQuery(ctx)
	defer cancel()
	return o.jira.ListComments(callCtx, issue.Key)
}
