package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gi8lino/jiramirror/internal/github"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/transport"
)

// fakeGitHub records every call and hands out sequential numbers.
type fakeGitHub struct {
	mu            sync.Mutex
	collaborators map[string]bool
	issues        map[int]github.IssueRequest
	comments      map[int][]string
	created       int
	updated       int
	userChecks    int
	nextComment   int64
	createErr     error
	commentErr    error
	verifyErr     error
	verifyHangs   bool
	failTitles    map[string]bool
}

func newFakeGitHub(collaborators ...string) *fakeGitHub {
	f := &fakeGitHub{
		collaborators: map[string]bool{},
		issues:        map[int]github.IssueRequest{},
		comments:      map[int][]string{},
		failTitles:    map[string]bool{},
	}
	for _, c := range collaborators {
		f.collaborators[c] = true
	}
	return f
}

func (f *fakeGitHub) CreateIssue(_ context.Context, in github.IssueRequest) (*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.failTitles[in.Title] {
		return nil, &transport.APIError{Service: "github", Method: "POST", Path: "/repos/acme/app/issues", StatusCode: 422, Body: "validation failed"}
	}
	f.created++
	n := f.created
	f.issues[n] = in
	return &github.Issue{Number: n, HTMLURL: fmt.Sprintf("https://github.com/acme/app/issues/%d", n)}, nil
}

func (f *fakeGitHub) UpdateIssue(_ context.Context, number int, in github.IssueRequest) (*github.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated++
	f.issues[number] = in
	return &github.Issue{Number: number}, nil
}

func (f *fakeGitHub) CreateComment(_ context.Context, number int, body string) (*github.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.nextComment++
	f.comments[number] = append(f.comments[number], body)
	return &github.Comment{ID: 9000 + f.nextComment}, nil
}

func (f *fakeGitHub) UserExists(ctx context.Context, login string) (bool, error) {
	f.mu.Lock()
	f.userChecks++
	hangs := f.verifyHangs
	f.mu.Unlock()
	if hangs {
		<-ctx.Done()
		return false, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return login != "ghost", nil
}

func (f *fakeGitHub) IsCollaborator(_ context.Context, login string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collaborators[login], nil
}

func (f *fakeGitHub) setVerifyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyErr = err
}

func (f *fakeGitHub) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.created + f.updated
	for _, c := range f.comments {
		n += len(c)
	}
	return n
}

func (f *fakeGitHub) commentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.comments {
		n += len(c)
	}
	return n
}

// fakeJira serves issues and comments from memory.
type fakeJira struct {
	mu        sync.Mutex
	issues    map[string]jira.Issue
	comments  map[string][]jira.Comment
	calls     int
	searchErr error
	// delay slows down paginated reads; the context still cancels them.
	delay time.Duration
}

func newFakeJira(issues ...jira.Issue) *fakeJira {
	f := &fakeJira{issues: map[string]jira.Issue{}, comments: map[string][]jira.Comment{}}
	for _, i := range issues {
		f.issues[i.Key] = i
	}
	return f
}

func (f *fakeJira) GetIssue(_ context.Context, key string) (*jira.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	i, ok := f.issues[key]
	if !ok {
		return nil, errors.New("jira: issue not found")
	}
	return &i, nil
}

func (f *fakeJira) wait(ctx context.Context) error {
	f.mu.Lock()
	d := f.delay
	f.mu.Unlock()
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeJira) SearchIssues(ctx context.Context, _ string) ([]jira.Issue, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	keys := make([]string, 0, len(f.issues))
	for k := range f.issues {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]jira.Issue, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.issues[k])
	}
	return out, nil
}

func (f *fakeJira) GetComment(_ context.Context, issueKey, commentID string) (*jira.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, c := range f.comments[issueKey] {
		if c.ID == commentID {
			return &c, nil
		}
	}
	return nil, errors.New("jira: comment not found")
}

func (f *fakeJira) ListComments(ctx context.Context, issueKey string) ([]jira.Comment, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return slices.Clone(f.comments[issueKey]), nil
}

func (f *fakeJira) BrowseURL(key string) string {
	return "https://example.atlassian.net/browse/" + key
}

func (f *fakeJira) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingStore counts every store access.
type countingStore struct {
	state.Store
	mu    sync.Mutex
	calls int
}

func (s *countingStore) inc() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) Get(ctx context.Context, key string) (state.Record, error) {
	s.inc()
	return s.Store.Get(ctx, key)
}

func (s *countingStore) CreateIfAbsent(ctx context.Context, rec state.Record) error {
	s.inc()
	return s.Store.CreateIfAbsent(ctx, rec)
}

func (s *countingStore) Update(ctx context.Context, key string, fn state.Mutator) (state.Record, error) {
	s.inc()
	return s.Store.Update(ctx, key, fn)
}

// racingStore simulates a concurrent writer committing between Get and
// CreateIfAbsent.
type racingStore struct {
	state.Store
	winner state.Record
}

func (s *racingStore) Get(context.Context, string) (state.Record, error) {
	return state.Record{}, state.ErrNotFound
}

func (s *racingStore) CreateIfAbsent(ctx context.Context, _ state.Record) error {
	_ = s.Store.CreateIfAbsent(ctx, s.winner)
	return state.ErrExists
}

// brokenStore fails every write.
type brokenStore struct {
	state.Store
}

func (s *brokenStore) CreateIfAbsent(context.Context, state.Record) error {
	return errors.New("redis: connection reset")
}

func (s *brokenStore) Update(context.Context, string, state.Mutator) (state.Record, error) {
	return state.Record{}, errors.New("redis: connection reset")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var userTable = map[string]string{
	"alice@example.com": "alice",
	"acc-bob":           "bob",
	"carol@example.com": "carol",
}

func newTestOrchestrator(t *testing.T, j *fakeJira, gh *fakeGitHub, store state.Store, opts Options) *Orchestrator {
	t.Helper()
	logger := discardLogger()
	return New(Deps{
		Jira:       j,
		GitHub:     gh,
		Store:      store,
		Labels:     mapping.NewLabelMapper(mapping.DefaultLabelMappings, DefaultTriggerLabel, 20),
		Identities: mapping.NewIdentityMapper(userTable, gh, logger),
	}, opts, logger)
}
