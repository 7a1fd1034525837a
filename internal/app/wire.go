package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gi8lino/jiramirror/internal/config"
	"github.com/gi8lino/jiramirror/internal/github"
	"github.com/gi8lino/jiramirror/internal/jira"
	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/render"
	"github.com/gi8lino/jiramirror/internal/state"
	"github.com/gi8lino/jiramirror/internal/syncer"
	"github.com/gi8lino/jiramirror/internal/telemetry"
	"github.com/gi8lino/jiramirror/internal/transport"
	"github.com/gi8lino/jiramirror/internal/utils"
)

// openStore opens the configured state backend.
func openStore(ctx context.Context, cfg config.StateConfig, ttl time.Duration) (state.Store, error) {
	opts := []state.Option{state.WithTTL(ttl)}

	var (
		store state.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendRedis:
		store, err = state.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, opts...)
	case config.BackendSQLite:
		store, err = state.OpenSQLite(ctx, cfg.SQLitePath, opts...)
	case config.BackendPostgres:
		store, err = state.OpenPostgres(ctx, cfg.PostgresURL, opts...)
	default:
		store = state.NewMemoryStore(opts...)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newOrchestrator builds the API clients and mappers around store.
func newOrchestrator(cfg config.Config, tel *telemetry.Telemetry, store state.Store, logger *slog.Logger) (*syncer.Orchestrator, error) {
	// Jira
	jiraAuth, method, err := jira.ResolveAuth(cfg.Jira.BearerToken, cfg.Jira.Email, cfg.Jira.APIToken)
	if err != nil {
		return nil, fmt.Errorf("jira auth error: %w", err)
	}
	logger.Debug("jira auth",
		"method", method,
		"header", utils.ObfuscateHeader(utils.GetAuthorizationHeader(jiraAuth)),
	)
	jiraAPI, err := transport.New("jira", cfg.Jira.BaseURL,
		transport.NewHTTPClient(cfg.Jira.Timeout, cfg.Jira.SkipTLSVerify),
		jiraAuth,
		transport.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	jiraClient := jira.NewClient(jiraAPI)

	// GitHub
	ghAuth := transport.BearerAuth(cfg.GitHub.Token)
	logger.Debug("github auth", "header", utils.ObfuscateHeader(utils.GetAuthorizationHeader(ghAuth)))
	ghOpts := append(github.Headers(), transport.WithLogger(logger))
	ghAPI, err := transport.New("github", cfg.GitHub.APIURL,
		transport.NewHTTPClient(cfg.GitHub.Timeout, false),
		ghAuth,
		ghOpts...,
	)
	if err != nil {
		return nil, err
	}
	ghClient := github.NewClient(ghAPI, cfg.GitHub.Owner, cfg.GitHub.Repo)

	renderer, err := render.New(cfg.Templates.IssueBody, cfg.Templates.CommentBody)
	if err != nil {
		return nil, fmt.Errorf("template error: %w", err)
	}

	return syncer.New(syncer.Deps{
		Jira:       jiraClient,
		GitHub:     ghClient,
		Store:      store,
		Labels:     mapping.NewLabelMapper(cfg.LabelMappings, cfg.Sync.TriggerLabel, cfg.Sync.MaxLabels),
		Identities: mapping.NewIdentityMapper(cfg.UserMappings, ghClient, logger),
		Renderer:   renderer,
		Recorder:   tel.Recorder(),
	}, syncer.Options{
		AcceptanceCriteriaField: cfg.Jira.AcceptanceCriteriaField,
		JQL:                     cfg.Jira.JQL,
		MaxTitleLength:          cfg.Sync.MaxTitleLength,
		Concurrency:             cfg.Sync.Concurrency,
		SyncComments:            cfg.Sync.CommentsEnabled(),
		CallTimeout:             max(cfg.Jira.Timeout, cfg.GitHub.Timeout),
		QueryTimeout:            cfg.Jira.QueryTimeout,
	}, logger), nil
}
