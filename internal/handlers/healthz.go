package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is implemented by state stores with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz handles the /healthz endpoint. When store can be pinged, an
// unreachable backend answers 503.
func Healthz(store any) http.HandlerFunc {
	p, _ := store.(Pinger)
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				http.Error(w, "state store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) // nolint:errcheck
	}
}
