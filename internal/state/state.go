// Package state persists the link between a Jira issue and its GitHub
// counterpart. The store is the only coordination point between concurrent
// webhook deliveries and scheduled runs: CreateIfAbsent is the atomic commit
// that decides which writer owns a new issue.
package state

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	// ErrNotFound is returned when no live record exists for a key.
	ErrNotFound = errors.New("sync record not found")
	// ErrExists is returned by CreateIfAbsent when a live record already exists.
	ErrExists = errors.New("sync record already exists")
)

// Record links one Jira issue to one GitHub issue.
type Record struct {
	JiraIssueKey      string           `json:"jira_issue_key"`
	GitHubIssueNumber int              `json:"github_issue_number"`
	GitHubIssueURL    string           `json:"github_issue_url"`
	Fingerprint       string           `json:"fingerprint"`
	Comments          map[string]int64 `json:"comments"`
	SyncedAt          time.Time        `json:"synced_at"`
	ExpiresAt         time.Time        `json:"expires_at,omitzero"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Comments = make(map[string]int64, len(r.Comments))
	maps.Copy(out.Comments, r.Comments)
	return out
}

// HasComment reports whether the Jira comment id is already mirrored.
func (r Record) HasComment(jiraCommentID string) bool {
	_, ok := r.Comments[jiraCommentID]
	return ok
}

// Expired reports whether r is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Mutator edits a copy of the stored record inside Update. Returning an error
// aborts the update and leaves the stored record untouched.
type Mutator func(*Record) error

// Store is the repository for sync records.
type Store interface {
	// Get returns the live record for key or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)
	// CreateIfAbsent stores rec unless a live record exists, in which case it
	// returns ErrExists.
	CreateIfAbsent(ctx context.Context, rec Record) error
	// Update applies fn atomically to the live record for key.
	Update(ctx context.Context, key string, fn Mutator) (Record, error)
	// Purge deletes expired records and returns how many were removed.
	Purge(ctx context.Context) (int, error)
	// Close releases backend resources.
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the record lifetime. Every successful write restarts it.
// Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp sets the expiry of rec relative to now.
func (o options) stamp(rec *Record, now time.Time) {
	if rec.Comments == nil {
		rec.Comments = map[string]int64{}
	}
	if o.ttl > 0 {
		rec.ExpiresAt = now.Add(o.ttl)
		return
	}
	rec.ExpiresAt = time.Time{}
}

// applyMutator runs fn on a copy of current and pins the fields that must
// never change after creation.
func applyMutator(current Record, fn Mutator) (Record, error) {
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Record{}, err
	}
	next.JiraIssueKey = current.JiraIssueKey
	next.GitHubIssueNumber = current.GitHubIssueNumber
	next.GitHubIssueURL = current.GitHubIssueURL
	if next.Comments == nil {
		next.Comments = map[string]int64{}
	}
	return next, nil
}
