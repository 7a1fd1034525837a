package jira

import (
	"fmt"
	"strings"

	"github.com/gi8lino/jiramirror/internal/transport"
)

// ResolveAuth returns the appropriate AuthFunc based on provided credentials.
// It supports either Bearer token or Basic (email + API token) authentication.
func ResolveAuth(bearerToken, email, token string) (auth transport.AuthFunc, method string, err error) {
	bearerToken = strings.TrimSpace(bearerToken)
	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)

	switch {
	case bearerToken != "":
		return transport.BearerAuth(bearerToken), "Bearer", nil
	case email != "" && token != "":
		return transport.BasicAuth(email, token), "Basic", nil
	default:
		return nil, "", fmt.Errorf("no valid auth method configured: must provide either bearer token or email+token")
	}
}
