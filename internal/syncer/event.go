package syncer

import (
	"context"

	"github.com/gi8lino/jiramirror/internal/jira"
)

// HandleWebhook routes a decoded webhook event. Thin issue payloads are
// completed with a Jira fetch first; comment events carry their own key.
func (o *Orchestrator) HandleWebhook(ctx context.Context, evt jira.WebhookEvent) (Result, error) {
	switch evt.Kind() {
	case jira.EventComment:
		return o.HandleCommentEvent(ctx, evt.Issue.Key, *evt.Comment)

	case jira.EventIssue:
		issue := *evt.Issue
		if issue.Thin() {
			callCtx, cancel := o.bounded(ctx)
			full, err := o.jira.GetIssue(callCtx, issue.Key)
			cancel()
			if err != nil {
				return o.fail(o.logger.With("issue", issue.Key), Result{Kind: "issue", IssueKey: issue.Key}, "fetch jira issue", err)
			}
			issue = *full
		}
		return o.HandleIssueEvent(ctx, issue)

	default:
		res := Result{Kind: "ignored", Outcome: OutcomeSkipped, Reason: "event not handled"}
		if evt.Issue != nil {
			res.IssueKey = evt.Issue.Key
		}
		o.logger.Debug("webhook event ignored", "event", evt.WebhookEvent, "issue", res.IssueKey)
		return res, nil
	}
}
