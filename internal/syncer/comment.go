package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gi8lino/jiramirror/internal/adf"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/render"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/telemetry"
	"github.com/gi8lino/jiramirror/internal/transport"
)

// HandleCommentEvent mirrors one Jira comment onto the GitHub issue linked
// to issueKey. Comments on issues that were never synced are skipped; an
// issue is never created from a comment.
func (o *Orchestrator) HandleCommentEvent(ctx context.Context, issueKey string, comment jira.Comment) (Result, error) {
	return o.syncComment(ctx, o.session(), issueKey, comment)
}

// syncComment collapses concurrent deliveries of the same comment in this
// process; the comment map in the store guards across processes.
func (o *Orchestrator) syncComment(ctx context.Context, session *mapping.IdentitySession, issueKey string, comment jira.Comment) (Result, error) {
	v, err, _ := o.comments.Do(issueKey+"/"+comment.ID, func() (any, error) {
		return o.mirrorComment(ctx, session, issueKey, comment)
	})
	return v.(Result), err
}

func (o *Orchestrator) mirrorComment(ctx context.Context, session *mapping.IdentitySession, issueKey string, comment jira.Comment) (res Result, err error) {
	ctx, span := o.recorder.Start(ctx, "comment", issueKey)
	defer func() {
		telemetry.End(span, err)
		o.recorder.Outcome(ctx, res.Kind, string(res.Outcome))
	}()

	res = Result{Kind: "comment", IssueKey: issueKey, CommentID: comment.ID}
	log := o.logger.With("issue", issueKey, "comment", comment.ID)

	if strings.TrimSpace(comment.ID) == "" {
		res.Outcome = OutcomeSkipped
		res.Reason = "missing comment id"
		return res, nil
	}

	rec, err := o.getRecord(ctx, issueKey)
	switch {
	case errors.Is(err, state.ErrNotFound):
		res.Outcome = OutcomeSkipped
		res.Reason = "issue not synced"
		log.Debug("comment skipped, issue not synced")
		return res, nil
	case err != nil:
		return o.fail(log, res, "load record", err)
	}

	res.GitHubNumber = rec.GitHubIssueNumber
	res.GitHubURL = rec.GitHubIssueURL

	if rec.HasComment(comment.ID) {
		res.Outcome = OutcomeDuplicate
		res.Reason = "comment already synced"
		log.Debug("comment already synced")
		return res, nil
	}

	if len(comment.Body) == 0 {
		callCtx, cancel := o.bounded(ctx)
		full, err := o.jira.GetComment(callCtx, issueKey, comment.ID)
		cancel()
		if err != nil {
			return o.fail(log, res, "fetch jira comment", err)
		}
		full.ID = comment.ID
		comment = *full
	}

	identity, err := o.resolve(ctx, session, comment.Author)
	if err != nil {
		return o.fail(log, res, "resolve comment author", err)
	}
	author := identity.Reference()
	if author == "" {
		author = unknownUser
	}

	body, err := o.renderer.Comment(render.CommentData{
		IssueKey:  issueKey,
		IssueURL:  o.jira.BrowseURL(issueKey),
		CommentID: comment.ID,
		Author:    author,
		Body:      adf.TranslateOr(comment.Body, emptyComment),
		Created:   comment.Created,
	})
	if err != nil {
		return o.fail(log, res, "render comment", err)
	}

	callCtx, cancel := o.bounded(ctx)
	gh, err := o.github.CreateComment(callCtx, rec.GitHubIssueNumber, body)
	cancel()
	if err != nil {
		if transport.Ambiguous(err) {
			log.Error("github comment creation outcome unknown; comment not recorded",
				"anomaly", "state_commit_unknown",
				"error", err,
			)
			res.Outcome = OutcomeError
			res.Reason = "github write outcome unknown"
			return res, fmt.Errorf("%w: create github comment for %s/%s: %w", ErrStateCommitUnknown, issueKey, comment.ID, err)
		}
		return o.fail(log, res, "create github comment", err)
	}

	callCtx, cancel = o.bounded(ctx)
	_, err = o.store.Update(callCtx, issueKey, func(r *state.Record) error {
		if r.HasComment(comment.ID) {
			return ErrCommentConflict
		}
		r.Comments[comment.ID] = gh.ID
		r.SyncedAt = o.now().UTC()
		return nil
	})
	cancel()
	switch {
	case errors.Is(err, ErrCommentConflict):
		log.Error("duplicate github comment created; another writer recorded it first",
			"anomaly", "duplicate_comment",
			"github_comment", gh.ID,
		)
		res.Outcome = OutcomeConflict
		res.Reason = "another writer mirrored this comment concurrently"
		return res, fmt.Errorf("%s/%s: %w", issueKey, comment.ID, ErrCommentConflict)
	case err != nil:
		log.Error("github comment created but sync record commit failed",
			"anomaly", "state_commit_unknown",
			"github_comment", gh.ID,
			"error", err,
		)
		res.Outcome = OutcomeError
		res.Reason = "sync record commit failed"
		return res, fmt.Errorf("%w: record comment %s/%s: %w", ErrStateCommitUnknown, issueKey, comment.ID, err)
	}

	res.Outcome = OutcomeCreated
	log.Info("github comment created", "github_comment", gh.ID)
	return res, nil
}
