package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/middleware"
	"github.com/gi8lino/jiramirror/internal/syncer"
)

// WebhookProcessor handles one decoded Jira webhook event.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, evt jira.WebhookEvent) (syncer.Result, error)
}

type webhookResponse struct {
	Status string        `json:"status"`
	Auth   string        `json:"auth"`
	Result syncer.Result `json:"result"`
}

// Webhook authenticates the raw body before parsing it; nothing reaches the
// processor unless both succeed. Lost races are reported as 200 because the
// winning writer already produced the GitHub artifact; other sync failures
// answer 502 so the sender redelivers.
func Webhook(authn *auth.Authenticator, proc WebhookProcessor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, status, err := readBody(w, r)
		if err != nil {
			logger.Warn("reading webhook body failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
			writeError(w, status, http.StatusText(status))
			return
		}

		decision := authn.Authenticate(r.Header, body)
		if !decision.OK() {
			logRejection(logger, r, decision)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var evt jira.WebhookEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			logger.Warn("malformed webhook payload",
				"request_id", middleware.GetRequestID(r.Context()),
				"remote", r.RemoteAddr,
				"error", err,
			)
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if evt.Issue == nil {
			writeError(w, http.StatusBadRequest, "missing issue object")
			return
		}

		logger.Debug("webhook accepted",
			"request_id", middleware.GetRequestID(r.Context()),
			"auth", decision.Result.String(),
			"event", evt.WebhookEvent,
			"issue", evt.Issue.Key,
		)

		res, err := proc.HandleWebhook(r.Context(), evt)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, webhookResponse{Status: "ok", Auth: decision.Result.String(), Result: res})
		case errors.Is(err, syncer.ErrDuplicateCreation), errors.Is(err, syncer.ErrCommentConflict):
			writeJSON(w, http.StatusOK, webhookResponse{Status: "conflict", Auth: decision.Result.String(), Result: res})
		default:
			// The orchestrator already logged the cause with the issue key.
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "sync failed", Issue: res.IssueKey, Reason: res.Reason})
		}
	}
}
