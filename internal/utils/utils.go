package utils

import (
	"net/http"
	"strings"

	"github.com/gi8lino/jiramirror/internal/transport"
)

// ObfuscateHeader returns an obfuscated Authorization header,
// showing only the auth scheme, first 2 and last 2 characters of the token.
// Example: "Basic dZ*********X1" or "Bearer ab******yz"
func ObfuscateHeader(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok {
		return "[invalid header]"
	}

	token = strings.TrimSpace(token)
	n := len(token)
	if n <= 4 {
		return scheme + " " + strings.Repeat("*", n)
	}
	return scheme + " " + token[:2] + strings.Repeat("*", n-4) + token[n-2:]
}

// GetAuthorizationHeader returns the "Authorization" header value that the
// AuthFunc would set on an outgoing request.
func GetAuthorizationHeader(authFunc transport.AuthFunc) string {
	req, _ := http.NewRequest(http.MethodGet, "https://dummy", nil)
	authFunc(req)
	return req.Header.Get("Authorization")
}
