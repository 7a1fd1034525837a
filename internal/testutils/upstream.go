package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Upstream fakes the Jira and GitHub REST endpoints on one server. Jira
// lives under /rest/api/3, GitHub under /repos and /users.
type Upstream struct {
	*httptest.Server

	mu       sync.Mutex
	issues   map[string]json.RawMessage
	created  []map[string]any
	updated  []map[string]any
	comments []map[string]any
	requests []string
}

// NewUpstream starts an Upstream serving the given Jira issues, keyed by
// issue key. The server is closed when the test ends.
func NewUpstream(t *testing.T, issues map[string]string) *Upstream {
	t.Helper()

	u := &Upstream{issues: map[string]json.RawMessage{}}
	for k, v := range issues {
		u.issues[k] = json.RawMessage(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/3/search/jql", u.search)
	mux.HandleFunc("GET /rest/api/3/issue/{key}", u.issue)
	mux.HandleFunc("GET /rest/api/3/issue/{key}/comment", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"startAt": 0, "total": 0, "comments": []any{}})
	})
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues", u.createIssue)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/issues/{number}", u.updateIssue)
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues/{number}/comments", u.createComment)
	mux.HandleFunc("GET /users/{login}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"login": r.PathValue("login")})
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}/collaborators/{login}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Method+" "+r.URL.Path)
		u.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

// Created returns the bodies of all created GitHub issues.
func (u *Upstream) Created() []map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]map[string]any(nil), u.created...)
}

// Updated returns the bodies of all GitHub issue updates.
func (u *Upstream) Updated() []map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]map[string]any(nil), u.updated...)
}

// Comments returns the bodies of all created GitHub comments.
func (u *Upstream) Comments() []map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]map[string]any(nil), u.comments...)
}

// Requests returns "METHOD /path" for every request received.
func (u *Upstream) Requests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.requests...)
}

func (u *Upstream) search(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	issues := make([]json.RawMessage, 0, len(u.issues))
	for _, v := range u.issues {
		issues = append(issues, v)
	}
	u.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues, "isLast": true})
}

func (u *Upstream) issue(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	raw, ok := u.issues[r.PathValue("key")]
	u.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errorMessages": []string{"Issue does not exist"}})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (u *Upstream) createIssue(w http.ResponseWriter, r *http.Request) {
	body := decode(r.Body)
	u.mu.Lock()
	u.created = append(u.created, body)
	n := len(u.created)
	u.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       1000 + n,
		"number":   n,
		"html_url": fmt.Sprintf("https://github.com/%s/%s/issues/%d", r.PathValue("owner"), r.PathValue("repo"), n),
		"state":    "open",
	})
}

func (u *Upstream) updateIssue(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	body := decode(r.Body)
	u.mu.Lock()
	u.updated = append(u.updated, body)
	u.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"number":   number,
		"html_url": "https://github.com/" + strings.Join([]string{r.PathValue("owner"), r.PathValue("repo"), "issues", r.PathValue("number")}, "/"),
		"state":    "open",
	})
}

func (u *Upstream) createComment(w http.ResponseWriter, r *http.Request) {
	body := decode(r.Body)
	u.mu.Lock()
	u.comments = append(u.comments, body)
	n := len(u.comments)
	u.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": 5000 + n})
}

func decode(r io.Reader) map[string]any {
	var out map[string]any
	_ = json.NewDecoder(r).Decode(&out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
