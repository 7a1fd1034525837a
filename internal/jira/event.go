package jira

import (
	"strings"

	"github.com/gi8lino/jiramirror/internal/mapping"
)

// EventKind classifies an inbound webhook.
type EventKind int

const (
	// EventIgnored covers deletions and anything without an issue key.
	EventIgnored EventKind = iota
	EventIssue
	EventComment
)

func (k EventKind) String() string {
	switch k {
	case EventIssue:
		return "issue"
	case EventComment:
		return "comment"
	default:
		return "ignored"
	}
}

// WebhookEvent is the JSON body Jira posts for issue and comment events.
// External callers may send the same shape without webhookEvent.
type WebhookEvent struct {
	WebhookEvent string            `json:"webhookEvent,omitempty"`
	Timestamp    int64             `json:"timestamp,omitempty"`
	Issue        *Issue            `json:"issue,omitempty"`
	Comment      *Comment          `json:"comment,omitempty"`
	User         *mapping.JiraUser `json:"user,omitempty"`
}

// Kind decides how the event is routed. A payload carrying a comment id is
// a comment event; deletions are ignored.
func (e WebhookEvent) Kind() EventKind {
	if e.Issue == nil || strings.TrimSpace(e.Issue.Key) == "" {
		return EventIgnored
	}
	if strings.HasSuffix(e.WebhookEvent, "_deleted") {
		return EventIgnored
	}
	if e.Comment != nil && e.Comment.ID != "" {
		return EventComment
	}
	if strings.HasPrefix(e.WebhookEvent, "comment_") {
		return EventIgnored
	}
	return EventIssue
}

// Thin reports whether the issue payload lacks the fields needed to sync,
// as with comment webhooks that only carry the issue key.
func (i Issue) Thin() bool {
	return i.Fields.Summary == "" && i.Fields.Labels == nil
}
