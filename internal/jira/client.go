// Package jira reads issues and comments from the Jira Cloud REST API (v3).
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gi8lino/jiramirror/internal/transport"
)

const (
	apiPrefix    = "/rest/api/3"
	pageSize     = 100
	maxPages     = 100
	searchFields = "*all"
)

// Client handles communication with the Jira REST API.
type Client struct {
	api *transport.Client
}

// NewClient wraps a transport client rooted at the Jira site URL
// (e.g. https://example.atlassian.net).
func NewClient(api *transport.Client) *Client {
	return &Client{api: api}
}

// BrowseURL returns the human link for an issue key.
func (c *Client) BrowseURL(key string) string {
	base := strings.TrimSuffix(c.api.BaseURL().String(), "/")
	return base + "/browse/" + url.PathEscape(key)
}

// GetIssue fetches a single issue with all fields.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("missing issue key")
	}
	var issue Issue
	err := c.api.JSON(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   apiPrefix + "/issue/" + url.PathEscape(key),
	}, &issue)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	return &issue, nil
}

// SearchIssues runs jql and follows nextPageToken until the last page.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, fmt.Errorf("missing JQL query")
	}

	var (
		issues []Issue
		token  string
	)
	for range maxPages {
		var page searchResult
		err := c.api.JSON(ctx, transport.Request{
			Method: http.MethodGet,
			Path:   apiPrefix + "/search/jql",
			Query: map[string]string{
				"jql":           jql,
				"fields":        searchFields,
				"maxResults":    strconv.Itoa(pageSize),
				"nextPageToken": token,
			},
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}

		issues = append(issues, page.Issues...)
		if page.IsLast || page.NextPageToken == "" || page.NextPageToken == token {
			return issues, nil
		}
		token = page.NextPageToken
	}
	return issues, fmt.Errorf("search issues: stopped after %d pages", maxPages)
}

// GetComment fetches one comment of an issue.
func (c *Client) GetComment(ctx context.Context, issueKey, commentID string) (*Comment, error) {
	var comment Comment
	err := c.api.JSON(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   apiPrefix + "/issue/" + url.PathEscape(issueKey) + "/comment/" + url.PathEscape(commentID),
	}, &comment)
	if err != nil {
		return nil, fmt.Errorf("get comment %s/%s: %w", issueKey, commentID, err)
	}
	return &comment, nil
}

// ListComments returns all comments of an issue, oldest first.
func (c *Client) ListComments(ctx context.Context, issueKey string) ([]Comment, error) {
	var out []Comment
	start := 0
	for range maxPages {
		var page CommentPage
		err := c.api.JSON(ctx, transport.Request{
			Method: http.MethodGet,
			Path:   apiPrefix + "/issue/" + url.PathEscape(issueKey) + "/comment",
			Query: map[string]string{
				"startAt":    strconv.Itoa(start),
				"maxResults": strconv.Itoa(pageSize),
				"orderBy":    "created",
			},
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("list comments %s: %w", issueKey, err)
		}

		out = append(out, page.Comments...)
		start += len(page.Comments)
		if len(page.Comments) == 0 || start >= page.Total {
			return out, nil
		}
	}
	return out, fmt.Errorf("list comments %s: stopped after %d pages", issueKey, maxPages)
}
