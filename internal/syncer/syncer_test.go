package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/transport"
)

func adfParagraph(text string) json.RawMessage {
	return json.RawMessage(`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"` + text + `"}]}]}`)
}

func proj1() jira.Issue {
	return jira.Issue{
		Key: "PROJ-1",
		Fields: jira.Fields{
			Summary:     "Login button broken",
			Description: adfParagraph("Clicking login does nothing."),
			Labels:      []string{"sync-to-github", "bug", "high-priority"},
			Priority:    &jira.Priority{Name: "High"},
			Assignee:    &mapping.JiraUser{AccountID: "acc-alice", EmailAddress: "alice@example.com", DisplayName: "Alice A"},
		},
	}
}

func comment555() jira.Comment {
	return jira.Comment{
		ID:      "555",
		Body:    adfParagraph("Reproduced on staging."),
		Author:  &mapping.JiraUser{EmailAddress: "carol@example.com", DisplayName: "Carol C"},
		Created: "2025-03-04T10:15:00.000+0000",
	}
}

func TestHandleIssueEvent(t *testing.T) {
	t.Parallel()

	t.Run("Creates issue with mapped labels and verified assignee", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		store := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, store, Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		assert.Equal(t, 1, res.GitHubNumber)

		require.Equal(t, 1, gh.created)
		created := gh.issues[1]
		assert.Equal(t, "Login button broken", created.Title)
		assert.Equal(t, []string{"type:bug", "priority:high"}, created.Labels)
		assert.Equal(t, "alice", created.Assignee)
		assert.Contains(t, created.Body, "PROJ-1")
		assert.Contains(t, created.Body, "Clicking login does nothing.")
		assert.Contains(t, created.Body, "- **Priority**: High")
		assert.Contains(t, created.Body, "- **Assignee**: @alice")
		assert.Contains(t, created.Body, "<!-- jira-sync: PROJ-1 -->")

		rec, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.Equal(t, 1, rec.GitHubIssueNumber)
		assert.Equal(t, "https://github.com/acme/app/issues/1", rec.GitHubIssueURL)
		assert.NotEmpty(t, rec.Fingerprint)
		assert.Empty(t, rec.Comments)
	})

	t.Run("Redelivery is a no-op", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{})

		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)

		assert.Equal(t, OutcomeUnchanged, res.Outcome)
		assert.Equal(t, 1, gh.created)
		assert.Equal(t, 0, gh.updated)
	})

	t.Run("Failed user verification never rewrites the issue", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		store := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, store, Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		require.Equal(t, OutcomeCreated, res.Outcome)
		before, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)

		gh.setVerifyErr(&transport.APIError{Service: "github", Method: "GET", Path: "/users/alice", StatusCode: 502, Body: "bad gateway"})
		res, err = o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, "translate failed", res.Reason)
		assert.Equal(t, 0, gh.updated)
		assert.Equal(t, "alice", gh.issues[1].Assignee)

		after, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.Equal(t, before.Fingerprint, after.Fingerprint)

		gh.setVerifyErr(nil)
		res, err = o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnchanged, res.Outcome)
		assert.Equal(t, 0, gh.updated)
	})

	t.Run("Failed user verification on create writes nothing", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		gh.verifyErr = errors.New("github: context deadline exceeded")
		store := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, store, Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, 0, gh.writes())
		_, err = store.Get(context.Background(), "PROJ-1")
		assert.ErrorIs(t, err, state.ErrNotFound)
	})

	t.Run("User verification runs under the call deadline", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		gh.verifyHangs = true
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{CallTimeout: 20 * time.Millisecond})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, 0, gh.writes())
	})

	t.Run("Changed content updates existing issue", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		store := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, store, Options{})

		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		before, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)

		changed := proj1()
		changed.Fields.Summary = "Login button broken on Safari"
		changed.Fields.Assignee = nil
		res, err := o.HandleIssueEvent(context.Background(), changed)
		require.NoError(t, err)

		assert.Equal(t, OutcomeUpdated, res.Outcome)
		assert.Equal(t, 1, gh.created)
		assert.Equal(t, 1, gh.updated)
		assert.Equal(t, "Login button broken on Safari", gh.issues[1].Title)
		assert.Empty(t, gh.issues[1].Assignee)
		assert.Contains(t, gh.issues[1].Body, "- **Assignee**: Unassigned")

		after, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
		assert.Equal(t, before.GitHubIssueNumber, after.GitHubIssueNumber)
	})

	t.Run("Missing trigger label makes no remote calls", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		j := newFakeJira()
		store := &countingStore{Store: state.NewMemoryStore()}
		o := newTestOrchestrator(t, j, gh, store, Options{})

		issue := proj1()
		issue.Fields.Labels = []string{"bug"}
		res, err := o.HandleIssueEvent(context.Background(), issue)
		require.NoError(t, err)

		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Equal(t, "trigger label absent", res.Reason)
		assert.Zero(t, gh.writes())
		assert.Zero(t, gh.userChecks)
		assert.Zero(t, j.callCount())
		assert.Zero(t, store.calls)
	})

	t.Run("Unverified assignee falls back to display name", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub() // alice is not a collaborator
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{})

		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)

		created := gh.issues[1]
		assert.Empty(t, created.Assignee)
		assert.Contains(t, created.Body, "- **Assignee**: Alice A")
		assert.NotContains(t, created.Body, "@alice")
	})

	t.Run("Acceptance criteria from custom field", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{AcceptanceCriteriaField: "customfield_10050"})

		issue := proj1()
		issue.Fields.Extra = map[string]json.RawMessage{"customfield_10050": json.RawMessage(`"* user can log in"`)}
		_, err := o.HandleIssueEvent(context.Background(), issue)
		require.NoError(t, err)

		assert.Contains(t, gh.issues[1].Body, "## Acceptance Criteria\n\n- user can log in")
	})

	t.Run("Empty summary and description get placeholders", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub()
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{MaxTitleLength: 10})

		issue := jira.Issue{Key: "PROJ-2", Fields: jira.Fields{Labels: []string{"sync-to-github"}}}
		_, err := o.HandleIssueEvent(context.Background(), issue)
		require.NoError(t, err)
		assert.Equal(t, "No title provided", gh.issues[1].Title)
		assert.True(t, strings.HasPrefix(gh.issues[1].Body, "_No description provided_"))

		issue = jira.Issue{Key: "PROJ-3", Fields: jira.Fields{Summary: "ääääääääääää", Labels: []string{"sync-to-github"}}}
		_, err = o.HandleIssueEvent(context.Background(), issue)
		require.NoError(t, err)
		assert.Equal(t, "ääääääääää", gh.issues[2].Title)
	})

	t.Run("Lost creation race reports duplicate", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		inner := state.NewMemoryStore()
		winner := state.Record{JiraIssueKey: "PROJ-1", GitHubIssueNumber: 41, GitHubIssueURL: "https://github.com/acme/app/issues/41"}
		o := newTestOrchestrator(t, newFakeJira(), gh, &racingStore{Store: inner, winner: winner}, Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateCreation)
		assert.Equal(t, OutcomeConflict, res.Outcome)

		rec, err := inner.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.Equal(t, 41, rec.GitHubIssueNumber, "winning record must not be overwritten")
	})

	t.Run("Failed state commit writes no record", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		inner := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, &brokenStore{Store: inner}, Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStateCommitUnknown)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, 1, gh.created)

		_, err = inner.Get(context.Background(), "PROJ-1")
		assert.ErrorIs(t, err, state.ErrNotFound)
	})

	t.Run("Timed out create is an unknown outcome", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		gh.createErr = context.DeadlineExceeded
		store := state.NewMemoryStore()
		o := newTestOrchestrator(t, newFakeJira(), gh, store, Options{})

		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStateCommitUnknown)

		_, err = store.Get(context.Background(), "PROJ-1")
		assert.ErrorIs(t, err, state.ErrNotFound)
	})

	t.Run("Rejected create is a plain failure", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		gh.failTitles["Login button broken"] = true
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{})

		res, err := o.HandleIssueEvent(context.Background(), proj1())
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrStateCommitUnknown))
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, "create github issue failed", res.Reason)
		assert.NotContains(t, res.Reason, "422")
	})
}

func TestHandleCommentEvent(t *testing.T) {
	t.Parallel()

	synced := func(t *testing.T, gh *fakeGitHub, j *fakeJira, store state.Store) *Orchestrator {
		t.Helper()
		o := newTestOrchestrator(t, j, gh, store, Options{})
		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)
		return o
	}

	t.Run("Failed author verification leaves the comment for redelivery", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice", "carol")
		store := state.NewMemoryStore()
		o := synced(t, gh, newFakeJira(), store)

		gh.setVerifyErr(errors.New("github: status 503"))
		res, err := o.HandleCommentEvent(context.Background(), "PROJ-1", comment555())
		require.Error(t, err)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, 0, gh.commentCount())

		gh.setVerifyErr(nil)
		res, err = o.HandleCommentEvent(context.Background(), "PROJ-1", comment555())
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		require.Len(t, gh.comments[1], 1)
		assert.Contains(t, gh.comments[1][0], "**@carol** commented")
	})

	t.Run("Redelivered comment is mirrored once", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		store := state.NewMemoryStore()
		o := synced(t, gh, newFakeJira(), store)

		for range 3 {
			_, err := o.HandleCommentEvent(context.Background(), "PROJ-1", comment555())
			require.NoError(t, err)
		}

		require.Len(t, gh.comments[1], 1)
		body := gh.comments[1][0]
		assert.Contains(t, body, "**Carol C** commented on [PROJ-1](https://example.atlassian.net/browse/PROJ-1)")
		assert.Contains(t, body, "Reproduced on staging.")
		assert.Contains(t, body, "<!-- jira-sync: PROJ-1/555 -->")

		rec, err := store.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.Len(t, rec.Comments, 1)
		assert.Equal(t, int64(9001), rec.Comments["555"])
	})

	t.Run("Concurrent deliveries create one comment", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		o := synced(t, gh, newFakeJira(), state.NewMemoryStore())

		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				_, _ = o.HandleCommentEvent(context.Background(), "PROJ-1", comment555())
			})
		}
		wg.Wait()

		assert.Equal(t, 1, gh.commentCount())
	})

	t.Run("Comment on unsynced issue is skipped", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub()
		j := newFakeJira()
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{})

		res, err := o.HandleCommentEvent(context.Background(), "PROJ-9", comment555())
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Equal(t, "issue not synced", res.Reason)
		assert.Zero(t, gh.writes())
		assert.Zero(t, j.callCount())
	})

	t.Run("Thin comment is fetched", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		j := newFakeJira()
		j.comments["PROJ-1"] = []jira.Comment{comment555()}
		o := synced(t, gh, j, state.NewMemoryStore())

		res, err := o.HandleCommentEvent(context.Background(), "PROJ-1", jira.Comment{ID: "555"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		assert.Equal(t, 1, j.callCount())
		assert.Contains(t, gh.comments[1][0], "Reproduced on staging.")
	})

	t.Run("Verified author is mentioned", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice", "bob")
		o := synced(t, gh, newFakeJira(), state.NewMemoryStore())

		c := comment555()
		c.Author = &mapping.JiraUser{AccountID: "acc-bob", DisplayName: "Bob B"}
		_, err := o.HandleCommentEvent(context.Background(), "PROJ-1", c)
		require.NoError(t, err)
		assert.Contains(t, gh.comments[1][0], "**@bob** commented")
	})

	t.Run("Failed record update reports unknown commit", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		inner := state.NewMemoryStore()
		o := synced(t, gh, newFakeJira(), inner)
		o.store = &brokenStore{Store: inner}

		_, err := o.HandleCommentEvent(context.Background(), "PROJ-1", comment555())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStateCommitUnknown)

		rec, err := inner.Get(context.Background(), "PROJ-1")
		require.NoError(t, err)
		assert.Empty(t, rec.Comments)
	})
}

func TestHandleWebhook(t *testing.T) {
	t.Parallel()

	t.Run("Thin issue payload is fetched", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		j := newFakeJira(proj1())
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{})

		res, err := o.HandleWebhook(context.Background(), jira.WebhookEvent{
			WebhookEvent: "jira:issue_updated",
			Issue:        &jira.Issue{Key: "PROJ-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, res.Outcome)
		assert.Equal(t, 1, j.callCount())
	})

	t.Run("Comment event routed", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub("alice")
		o := newTestOrchestrator(t, newFakeJira(), gh, state.NewMemoryStore(), Options{})
		_, err := o.HandleIssueEvent(context.Background(), proj1())
		require.NoError(t, err)

		c := comment555()
		res, err := o.HandleWebhook(context.Background(), jira.WebhookEvent{
			WebhookEvent: "comment_created",
			Issue:        &jira.Issue{Key: "PROJ-1"},
			Comment:      &c,
		})
		require.NoError(t, err)
		assert.Equal(t, "comment", res.Kind)
		assert.Equal(t, OutcomeCreated, res.Outcome)
	})

	t.Run("Deletion ignored", func(t *testing.T) {
		t.Parallel()

		gh := newFakeGitHub()
		j := newFakeJira()
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{})

		issue := proj1()
		res, err := o.HandleWebhook(context.Background(), jira.WebhookEvent{WebhookEvent: "jira:issue_deleted", Issue: &issue})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Equal(t, "PROJ-1", res.IssueKey)
		assert.Zero(t, gh.writes())
		assert.Zero(t, j.callCount())
	})
}

func TestRunScheduledSync(t *testing.T) {
	t.Parallel()

	t.Run("Slow paginated reads get the query deadline", func(t *testing.T) {
		t.Parallel()

		j := newFakeJira(proj1())
		j.comments["PROJ-1"] = []jira.Comment{comment555()}
		j.delay = 100 * time.Millisecond
		gh := newFakeGitHub("alice")
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{
			SyncComments: true,
			CallTimeout:  20 * time.Millisecond,
			QueryTimeout: 5 * time.Second,
		})

		summary, err := o.RunScheduledSync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Synced)
		assert.Equal(t, 1, summary.Comments.Synced)
		assert.Equal(t, 1, gh.commentCount())
	})

	t.Run("Query deadline bounds the search", func(t *testing.T) {
		t.Parallel()

		j := newFakeJira(proj1())
		j.delay = 5 * time.Second
		o := newTestOrchestrator(t, j, newFakeGitHub("alice"), state.NewMemoryStore(), Options{
			QueryTimeout: 20 * time.Millisecond,
		})

		_, err := o.RunScheduledSync(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Continues past failures and summarizes", func(t *testing.T) {
		t.Parallel()

		broken := proj1()
		broken.Key = "PROJ-2"
		broken.Fields.Summary = "Breaks on create"

		unlabeled := proj1()
		unlabeled.Key = "PROJ-3"
		unlabeled.Fields.Labels = []string{"bug"}

		third := proj1()
		third.Key = "PROJ-4"
		third.Fields.Summary = "Another one"

		gh := newFakeGitHub("alice")
		gh.failTitles["Breaks on create"] = true
		j := newFakeJira(proj1(), broken, unlabeled, third)
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{Concurrency: 2})

		summary, err := o.RunScheduledSync(context.Background())
		require.NoError(t, err)

		assert.NotEmpty(t, summary.RunID)
		assert.Equal(t, 2, summary.Synced)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Errors)
		assert.Equal(t, []string{"PROJ-2"}, summary.Failed)
		assert.Equal(t, 2, gh.created)
		// One verification for alice across the whole run.
		assert.Equal(t, 1, gh.userChecks)

		summary, err = o.RunScheduledSync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Synced)
		assert.Equal(t, 3, summary.Skipped)
		assert.Equal(t, 1, summary.Errors)
		assert.Equal(t, 2, gh.created)
	})

	t.Run("Mirrors comments when enabled", func(t *testing.T) {
		t.Parallel()

		issue := proj1()
		issue.Fields.Comment = &jira.CommentPage{Comments: []jira.Comment{comment555()}, Total: 2}

		gh := newFakeGitHub("alice")
		j := newFakeJira(issue)
		second := comment555()
		second.ID = "556"
		j.comments["PROJ-1"] = []jira.Comment{comment555(), second}
		o := newTestOrchestrator(t, j, gh, state.NewMemoryStore(), Options{SyncComments: true})

		summary, err := o.RunScheduledSync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Synced)
		assert.Equal(t, 2, summary.Comments.Synced)
		assert.Len(t, gh.comments[1], 2)

		summary, err = o.RunScheduledSync(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Comments.Synced)
		assert.Equal(t, 2, summary.Comments.Skipped)
		assert.Len(t, gh.comments[1], 2)
	})

	t.Run("Query failure fails the run", func(t *testing.T) {
		t.Parallel()

		j := newFakeJira()
		j.searchErr = errors.New("jira: status 401")
		o := newTestOrchestrator(t, j, newFakeGitHub(), state.NewMemoryStore(), Options{})

		_, err := o.RunScheduledSync(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query jira issues")
	})
}

func TestJQL(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newFakeJira(), newFakeGitHub(), state.NewMemoryStore(), Options{})
	assert.Equal(t, `labels = "sync-to-github" ORDER BY updated DESC`, o.JQL())

	o = newTestOrchestrator(t, newFakeJira(), newFakeGitHub(), state.NewMemoryStore(), Options{JQL: "project = PROJ"})
	assert.Equal(t, "project = PROJ", o.JQL())
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No title provided", truncateTitle("   ", 256))
	assert.Equal(t, "a b", truncateTitle(" a \n b ", 256))
	assert.Equal(t, "abc", truncateTitle("abcdef", 3))
}
