package server

import (
	"net/http"
	"net/url"
	"strings"
)

// NormalizeRoutePrefix turns "", "/", "sync/", "/sync" or a full URL into
// either "" or "/path" without a trailing slash.
func NormalizeRoutePrefix(input string) string {
	s := strings.TrimSpace(input)
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Path
		}
	}
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return ""
	}
	return "/" + s
}

// mountUnderPrefix serves h below prefix only. Paths outside the prefix
// answer 404 so a reverse proxy cannot reach the routes by accident.
func mountUnderPrefix(h http.Handler, prefix string) http.Handler {
	if prefix == "" {
		return h
	}
	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, h))
	return mux
}
