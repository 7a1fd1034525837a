package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/gi8lino/jiramirror/internal/mapping"
)

// Issue is a Jira issue as returned by the REST API and webhook payloads.
type Issue struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key"`
	Self   string `json:"self,omitempty"`
	Fields Fields `json:"fields"`
}

// Fields holds the issue fields this service reads. Every other field,
// including custom fields, is kept raw in Extra.
type Fields struct {
	Summary     string            `json:"summary"`
	Description json.RawMessage   `json:"description,omitempty"`
	Labels      []string          `json:"labels"`
	Priority    *Priority         `json:"priority,omitempty"`
	Assignee    *mapping.JiraUser `json:"assignee,omitempty"`
	Reporter    *mapping.JiraUser `json:"reporter,omitempty"`
	Status      *Status           `json:"status,omitempty"`
	Comment     *CommentPage      `json:"comment,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type fieldsAlias Fields

var knownFields = map[string]struct{}{
	"summary": {}, "description": {}, "labels": {}, "priority": {},
	"assignee": {}, "reporter": {}, "status": {}, "comment": {},
}

// UnmarshalJSON decodes the known fields and captures the rest.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var known fieldsAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*f = Fields(known)
	for k, v := range all {
		if _, ok := knownFields[k]; ok {
			continue
		}
		if f.Extra == nil {
			f.Extra = map[string]json.RawMessage{}
		}
		f.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the known fields merged with Extra.
func (f Fields) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(fieldsAlias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Extra) == 0 {
		return known, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// Custom returns the raw value of a custom field such as
// "customfield_10010", or nil when it is absent or null.
func (f Fields) Custom(id string) json.RawMessage {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	v, ok := f.Extra[id]
	if !ok || string(v) == "null" {
		return nil
	}
	return v
}

// PriorityName returns the priority name or "".
func (f Fields) PriorityName() string {
	if f.Priority == nil {
		return ""
	}
	return f.Priority.Name
}

// Clone returns a copy that shares no maps or slices with f.
func (f Fields) Clone() Fields {
	out := f
	out.Labels = append([]string(nil), f.Labels...)
	if f.Extra != nil {
		out.Extra = maps.Clone(f.Extra)
	}
	return out
}

// Priority is the issue priority.
type Priority struct {
	Name string `json:"name"`
}

// Status represents the status field of the issue.
type Status struct {
	Name string `json:"name"`
}

// CommentPage is the paginated comment field of an issue.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
}

// Comment is a single issue comment.
type Comment struct {
	ID      string            `json:"id"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Author  *mapping.JiraUser `json:"author,omitempty"`
	Created string            `json:"created,omitempty"`
	Updated string            `json:"updated,omitempty"`
}

// UnmarshalJSON accepts the comment id as a JSON string or number.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type commentAlias Comment
	aux := struct {
		*commentAlias
		ID json.RawMessage `json:"id"`
	}{commentAlias: (*commentAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := parseID(aux.ID)
	if err != nil {
		return fmt.Errorf("comment id: %w", err)
	}
	c.ID = id
	return nil
}

// parseID decodes an id sent either as "555" or 555.
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// searchResult is a page of the enhanced JQL search endpoint.
type searchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
	IsLast        bool    `json:"isLast"`
}
