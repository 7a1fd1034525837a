// Package syncer mirrors Jira issues and comments into GitHub.
//
// Every unit of work (one issue or one comment) is re-enterable: the sync
// state store decides whether something was already mirrored, and its
// create-if-absent write is the commit point that makes one writer win.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gi8lino/jiramirror/internal/github"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/render"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/telemetry"
)

var (
	// ErrDuplicateCreation means a GitHub issue was created but another
	// writer committed the sync record first. The extra GitHub issue needs
	// manual cleanup.
	ErrDuplicateCreation = errors.New("duplicate creation: another writer committed the sync record first")
	// ErrStateCommitUnknown means a GitHub write may have happened but no
	// sync record was written for it.
	ErrStateCommitUnknown = errors.New("state commit unknown")
	// ErrCommentConflict means the comment was mirrored concurrently by
	// another writer.
	ErrCommentConflict = errors.New("comment already recorded by another writer")
)

// Defaults applied by New when Options leaves a field zero.
const (
	DefaultTriggerLabel   = "sync-to-github"
	DefaultMaxTitleLength = 256
	DefaultConcurrency    = 4
	DefaultCallTimeout    = 30 * time.Second
	DefaultQueryTimeout   = 5 * time.Minute

	noTitle      = "No title provided"
	unknownUser  = "Unknown user"
	emptyComment = "_Empty comment_"
)

// JiraAPI is the subset of the Jira client the orchestrator consumes.
type JiraAPI interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	GetComment(ctx context.Context, issueKey, commentID string) (*jira.Comment, error)
	ListComments(ctx context.Context, issueKey string) ([]jira.Comment, error)
	BrowseURL(key string) string
}

// GitHubAPI is the subset of the GitHub client the orchestrator consumes.
type GitHubAPI interface {
	CreateIssue(ctx context.Context, in github.IssueRequest) (*github.Issue, error)
	UpdateIssue(ctx context.Context, number int, in github.IssueRequest) (*github.Issue, error)
	CreateComment(ctx context.Context, number int, body string) (*github.Comment, error)
}

// Options tunes the orchestrator.
type Options struct {
	// AcceptanceCriteriaField is the Jira custom field id rendered as an
	// acceptance criteria section. Empty disables the section.
	AcceptanceCriteriaField string
	// JQL overrides the scheduled query. Empty selects all issues carrying
	// the trigger label.
	JQL            string
	MaxTitleLength int
	// Concurrency bounds how many issues a scheduled run handles at once.
	Concurrency int
	// SyncComments makes scheduled runs mirror comments too.
	SyncComments bool
	// CallTimeout bounds every single remote call, store access included.
	CallTimeout time.Duration
	// QueryTimeout bounds paginated Jira reads (JQL search, comment
	// listing) as a whole. Each page request is still limited by the HTTP
	// client timeout.
	QueryTimeout time.Duration
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Jira       JiraAPI
	GitHub     GitHubAPI
	Store      state.Store
	Labels     *mapping.LabelMapper
	Identities *mapping.IdentityMapper
	Renderer   *render.Renderer
	Recorder   *telemetry.Recorder
}

// Orchestrator runs the issue and comment state machine.
type Orchestrator struct {
	jira       JiraAPI
	github     GitHubAPI
	store      state.Store
	labels     *mapping.LabelMapper
	identities *mapping.IdentityMapper
	renderer   *render.Renderer
	recorder   *telemetry.Recorder
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	// comments collapses concurrent deliveries of the same comment.
	comments singleflight.Group
}

// New builds an Orchestrator. Missing optional dependencies get defaults.
func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = DefaultMaxTitleLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if deps.Labels == nil {
		deps.Labels = mapping.NewLabelMapper(mapping.DefaultLabelMappings, DefaultTriggerLabel, 0)
	}
	if deps.Renderer == nil {
		deps.Renderer = render.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = telemetry.Noop().Recorder()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Identities == nil {
		deps.Identities = mapping.NewIdentityMapper(nil, nil, logger)
	}
	return &Orchestrator{
		jira:       deps.Jira,
		github:     deps.GitHub,
		store:      deps.Store,
		labels:     deps.Labels,
		identities: deps.Identities,
		renderer:   deps.Renderer,
		recorder:   deps.Recorder,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Store returns the sync state store.
func (o *Orchestrator) Store() state.Store { return o.store }

// JQL returns the query used by scheduled runs.
func (o *Orchestrator) JQL() string {
	if o.opts.JQL != "" {
		return o.opts.JQL
	}
	return `labels = "` + o.labels.Trigger() + `" ORDER BY updated DESC`
}

// session starts an identity resolution scope. One webhook event or one
// scheduled run shares a session.
func (o *Orchestrator) session() *mapping.IdentitySession {
	return o.identities.Session()
}

// bounded derives the per-call deadline.
func (o *Orchestrator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.opts.CallTimeout)
}

// boundedQuery derives the deadline for a paginated Jira read.
func (o *Orchestrator) boundedQuery(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.opts.QueryTimeout)
}
