// Package mapping resolves Jira users and labels to their GitHub equivalents.
package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// JiraUser is the subset of a Jira user the mapper needs.
type JiraUser struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// Identity is the outcome of resolving a Jira user. Login is only set when
// the GitHub user exists and collaborates on the target repository.
type Identity struct {
	Login       string
	DisplayName string
}

// Verified reports whether the identity maps to a usable GitHub login.
func (i Identity) Verified() bool {
	return i.Login != ""
}

// Reference renders the identity for a markdown body: an @mention for
// verified users, the plain display name otherwise.
func (i Identity) Reference() string {
	if i.Verified() {
		return "@" + i.Login
	}
	return i.DisplayName
}

// UserVerifier checks GitHub users against the target repository.
type UserVerifier interface {
	UserExists(ctx context.Context, login string) (bool, error)
	IsCollaborator(ctx context.Context, login string) (bool, error)
}

// ParseUserMapping parses "jira-id:github-login,..." pairs. Keys may be
// emails or account ids.
func ParseUserMapping(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		i := strings.LastIndex(pair, ":")
		if i <= 0 || i == len(pair)-1 {
			return nil, fmt.Errorf("invalid user mapping %q: expected <jira-id>:<github-login>", pair)
		}
		out[strings.TrimSpace(pair[:i])] = strings.TrimSpace(pair[i+1:])
	}
	return out, nil
}

// IdentityMapper holds the static user table. Verification results are
// cached per Session.
type IdentityMapper struct {
	table    map[string]string
	verifier UserVerifier
	logger   *slog.Logger
}

// NewIdentityMapper copies table and returns a mapper.
func NewIdentityMapper(table map[string]string, verifier UserVerifier, logger *slog.Logger) *IdentityMapper {
	t := make(map[string]string, len(table))
	for k, v := range table {
		t[k] = v
	}
	return &IdentityMapper{table: t, verifier: verifier, logger: logger}
}

// Session starts a resolution scope with its own verification cache. One
// session covers one webhook event or one scheduled run.
func (m *IdentityMapper) Session() *IdentitySession {
	return &IdentitySession{mapper: m, verified: map[string]bool{}}
}

// Lookup returns the mapped login for u without verifying it.
func (m *IdentityMapper) Lookup(u JiraUser) (string, bool) {
	if u.EmailAddress != "" {
		if login, ok := m.table[u.EmailAddress]; ok {
			return login, true
		}
	}
	if u.AccountID != "" {
		if login, ok := m.table[u.AccountID]; ok {
			return login, true
		}
	}
	return "", false
}

// IdentitySession resolves users and memoizes GitHub verification.
type IdentitySession struct {
	mapper   *IdentityMapper
	group    singleflight.Group
	mu       sync.Mutex
	verified map[string]bool
}

// Resolve maps u to a verified GitHub login or falls back to the display
// name when the login is unmapped or definitely not a collaborator. A nil
// user resolves to the zero Identity. A failed verification call is
// returned as an error.
func (s *IdentitySession) Resolve(ctx context.Context, u *JiraUser) (Identity, error) {
	if u == nil {
		return Identity{}, nil
	}
	id := Identity{DisplayName: displayName(*u)}

	login, ok := s.mapper.Lookup(*u)
	if !ok || s.mapper.verifier == nil {
		return id, nil
	}

	verified, err := s.verify(ctx, login)
	if err != nil {
		s.mapper.logger.Warn("github user verification failed",
			"login", login,
			"error", err,
		)
		return Identity{}, fmt.Errorf("verify github user %s: %w", login, err)
	}
	if !verified {
		s.mapper.logger.Info("mapped github user is not a collaborator", "login", login)
		return id, nil
	}

	id.Login = login
	return id, nil
}

func (s *IdentitySession) verify(ctx context.Context, login string) (bool, error) {
	if v, ok := s.cached(login); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(login, func() (any, error) {
		// A caller that missed the cache may arrive after the previous
		// flight finished.
		if v, ok := s.cached(login); ok {
			return v, nil
		}
		exists, err := s.mapper.verifier.UserExists(ctx, login)
		if err != nil {
			return false, err
		}
		ok := exists
		if exists {
			if ok, err = s.mapper.verifier.IsCollaborator(ctx, login); err != nil {
				return false, err
			}
		}
		s.mu.Lock()
		s.verified[login] = ok
		s.mu.Unlock()
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *IdentitySession) cached(login string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verified[login]
	return v, ok
}

func displayName(u JiraUser) string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.EmailAddress != "":
		if i := strings.Index(u.EmailAddress, "@"); i > 0 {
			return u.EmailAddress[:i]
		}
		return u.EmailAddress
	default:
		return "Unknown user"
	}
}
