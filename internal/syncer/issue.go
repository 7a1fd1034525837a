package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/telemetry"
	"github.com/gi8lino/jiramirror/internal/transport"
)

// HandleIssueEvent mirrors one Jira issue. Issues without the trigger label
// are skipped before any remote call is made.
func (o *Orchestrator) HandleIssueEvent(ctx context.Context, issue jira.Issue) (Result, error) {
	if !o.labels.HasTrigger(issue.Fields.Labels) {
		res := Result{Kind: "issue", IssueKey: issue.Key, Outcome: OutcomeSkipped, Reason: "trigger label absent"}
		o.recorder.Outcome(ctx, res.Kind, string(res.Outcome))
		return res, nil
	}
	return o.syncIssue(ctx, o.session(), issue)
}

// syncIssue creates or updates the GitHub issue for issue.
func (o *Orchestrator) syncIssue(ctx context.Context, session *mapping.IdentitySession, issue jira.Issue) (res Result, err error) {
	ctx, span := o.recorder.Start(ctx, "issue", issue.Key)
	defer func() {
		telemetry.End(span, err)
		o.recorder.Outcome(ctx, res.Kind, string(res.Outcome))
	}()

	res = Result{Kind: "issue", IssueKey: issue.Key}
	log := o.logger.With("issue", issue.Key)

	out, err := o.translate(ctx, session, issue)
	if err != nil {
		return o.fail(log, res, "translate", err)
	}

	rec, err := o.getRecord(ctx, issue.Key)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return o.createIssue(ctx, log, res, issue.Key, out)
	case err != nil:
		return o.fail(log, res, "load record", err)
	}

	res.GitHubNumber = rec.GitHubIssueNumber
	res.GitHubURL = rec.GitHubIssueURL

	if rec.Fingerprint == out.fingerprint {
		res.Outcome = OutcomeUnchanged
		log.Debug("issue unchanged", "github_issue", rec.GitHubIssueNumber)
		return res, nil
	}

	callCtx, cancel := o.bounded(ctx)
	_, err = o.github.UpdateIssue(callCtx, rec.GitHubIssueNumber, out.request)
	cancel()
	if err != nil {
		return o.fail(log, res, "update github issue", err)
	}

	callCtx, cancel = o.bounded(ctx)
	_, err = o.store.Update(callCtx, issue.Key, func(r *state.Record) error {
		r.Fingerprint = out.fingerprint
		r.SyncedAt = o.now().UTC()
		return nil
	})
	cancel()
	if err != nil {
		// The PATCH is idempotent; the next event repeats it.
		return o.fail(log, res, "refresh record", err)
	}

	res.Outcome = OutcomeUpdated
	log.Info("github issue updated", "github_issue", rec.GitHubIssueNumber)
	return res, nil
}

// createIssue is the not-found path. The record write is the commit point:
// losing it after a successful GitHub create is reported, never overwritten.
func (o *Orchestrator) createIssue(ctx context.Context, log *slog.Logger, res Result, key string, out translated) (Result, error) {
	callCtx, cancel := o.bounded(ctx)
	gh, err := o.github.CreateIssue(callCtx, out.request)
	cancel()
	if err != nil {
		if transport.Ambiguous(err) {
			log.Error("github issue creation outcome unknown; no sync record written",
				"anomaly", "state_commit_unknown",
				"error", err,
			)
			res.Outcome = OutcomeError
			res.Reason = "github write outcome unknown"
			return res, fmt.Errorf("%w: create github issue for %s: %w", ErrStateCommitUnknown, key, err)
		}
		return o.fail(log, res, "create github issue", err)
	}

	res.GitHubNumber = gh.Number
	res.GitHubURL = gh.HTMLURL

	rec := state.Record{
		JiraIssueKey:      key,
		GitHubIssueNumber: gh.Number,
		GitHubIssueURL:    gh.HTMLURL,
		Fingerprint:       out.fingerprint,
		Comments:          map[string]int64{},
		SyncedAt:          o.now().UTC(),
	}

	callCtx, cancel = o.bounded(ctx)
	err = o.store.CreateIfAbsent(callCtx, rec)
	cancel()
	switch {
	case errors.Is(err, state.ErrExists):
		attrs := []any{
			"anomaly", "duplicate_creation",
			"github_issue", gh.Number,
			"github_url", gh.HTMLURL,
		}
		if winner, gerr := o.getRecord(ctx, key); gerr == nil {
			attrs = append(attrs, "winning_github_issue", winner.GitHubIssueNumber)
		}
		log.Error("duplicate github issue created; another writer committed first", attrs...)
		res.Outcome = OutcomeConflict
		res.Reason = "another writer created this issue concurrently"
		return res, fmt.Errorf("%s: %w", key, ErrDuplicateCreation)
	case err != nil:
		log.Error("github issue created but sync record commit failed",
			"anomaly", "state_commit_unknown",
			"github_issue", gh.Number,
			"github_url", gh.HTMLURL,
			"error", err,
		)
		res.Outcome = OutcomeError
		res.Reason = "sync record commit failed"
		return res, fmt.Errorf("%w: commit record for %s: %w", ErrStateCommitUnknown, key, err)
	}

	res.Outcome = OutcomeCreated
	log.Info("github issue created", "github_issue", gh.Number, "github_url", gh.HTMLURL)
	return res, nil
}

func (o *Orchestrator) getRecord(ctx context.Context, key string) (state.Record, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()
	return o.store.Get(ctx, key)
}

// fail logs err for the unit of work and marks res as failed. The reason
// returned to callers is the operation, never the remote error text.
func (o *Orchestrator) fail(log *slog.Logger, res Result, op string, err error) (Result, error) {
	log.Error("sync failed", "op", op, "error", err)
	res.Outcome = OutcomeError
	res.Reason = op + " failed"
	return res, fmt.Errorf("%s: %s: %w", res.IssueKey, op, err)
}
