package transport

import "net/http"

// AuthFunc decorates an outgoing request with credentials.
type AuthFunc func(*http.Request)

// BasicAuth authenticates with a username and password (Jira email + API token).
func BasicAuth(username, password string) AuthFunc {
	return func(r *http.Request) {
		r.SetBasicAuth(username, password)
	}
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) AuthFunc {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// NoAuth leaves the request untouched.
func NoAuth(*http.Request) {}
