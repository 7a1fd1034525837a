// Package github writes mirrored issues and comments through the GitHub REST
// API and verifies users against the target repository.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gi8lino/jiramirror/internal/transport"
)

// DefaultAPIURL is the public GitHub API endpoint.
const DefaultAPIURL = "https://api.github.com"

// APIVersion pins the REST API version.
const APIVersion = "2022-11-28"

// Client is scoped to one owner/repo.
type Client struct {
	api   *transport.Client
	owner string
	repo  string
}

// NewClient wraps a transport client. The transport should carry the token
// (transport.BearerAuth) and the API version headers from Headers.
func NewClient(api *transport.Client, owner, repo string) *Client {
	return &Client{api: api, owner: owner, repo: repo}
}

// Headers returns the options every GitHub transport client should use.
func Headers() []transport.Option {
	return []transport.Option{
		transport.WithHeader("Accept", "application/vnd.github+json"),
		transport.WithHeader("X-GitHub-Api-Version", APIVersion),
	}
}

// Repo returns "owner/repo".
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

func (c *Client) repoPath(suffix string) string {
	return "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo) + suffix
}

// CreateIssue opens an issue and returns its number and URL.
func (c *Client) CreateIssue(ctx context.Context, in IssueRequest) (*Issue, error) {
	var out Issue
	err := c.api.JSON(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   c.repoPath("/issues"),
		Body:   in.createBody(),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return &out, nil
}

// UpdateIssue replaces title, body, labels and assignees of an issue.
func (c *Client) UpdateIssue(ctx context.Context, number int, in IssueRequest) (*Issue, error) {
	var out Issue
	err := c.api.JSON(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   c.repoPath(fmt.Sprintf("/issues/%d", number)),
		Body:   in.updateBody(),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("update issue #%d: %w", number, err)
	}
	return &out, nil
}

// CreateComment adds a comment to an issue and returns its id.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (*Comment, error) {
	var out Comment
	err := c.api.JSON(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   c.repoPath(fmt.Sprintf("/issues/%d/comments", number)),
		Body:   map[string]string{"body": body},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create comment on #%d: %w", number, err)
	}
	return &out, nil
}

// UserExists reports whether a GitHub account with login exists.
func (c *Client) UserExists(ctx context.Context, login string) (bool, error) {
	_, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users/" + url.PathEscape(login),
	})
	if transport.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user %s: %w", login, err)
	}
	return true, nil
}

// IsCollaborator reports whether login collaborates on the repository.
// GitHub answers 204 for yes and 404 for no.
func (c *Client) IsCollaborator(ctx context.Context, login string) (bool, error) {
	_, err := c.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   c.repoPath("/collaborators/" + url.PathEscape(login)),
	})
	if transport.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check collaborator %s: %w", login, err)
	}
	return true, nil
}
