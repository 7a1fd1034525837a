package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/containeroo/resolver"
	"gopkg.in/yaml.v3"

	"github.com/gi8lino/jiramirror/internal/mapping"
	"github.com/gi8lino/jiramirror/internal/state"
)

// Default values applied by ValidateConfig.
const (
	DefaultGitHubAPIURL   = "https://api.github.com"
	DefaultTriggerLabel   = "sync-to-github"
	DefaultRecordTTL      = 90 * 24 * time.Hour
	DefaultMaxLabels      = 20
	DefaultMaxTitleLength = 256
	DefaultConcurrency    = 4
	DefaultTimeout        = 15 * time.Second
	DefaultQueryTimeout   = 5 * time.Minute
	DefaultSQLitePath     = "jiramirror.db"

	// maxTitleLength is the GitHub limit for issue titles.
	maxTitleLength = 256
)

// LoadConfig reads the YAML file at path. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ResolveSecrets replaces secret references such as "env:GITHUB_TOKEN" or
// "file:/run/secrets/token" with their values.
func ResolveSecrets(cfg *Config) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"jira.email", &cfg.Jira.Email},
		{"jira.apiToken", &cfg.Jira.APIToken},
		{"jira.bearerToken", &cfg.Jira.BearerToken},
		{"github.token", &cfg.GitHub.Token},
		{"webhook.secret", &cfg.Webhook.Secret},
		{"state.redisURL", &cfg.State.RedisURL},
		{"state.postgresURL", &cfg.State.PostgresURL},
	}

	var errs []string
	for _, f := range fields {
		if *f.dst == "" {
			continue
		}
		v, err := resolver.ResolveVariable(*f.dst)
		if err != nil {
			// The reference itself may name a secret file; keep it out of the error.
			errs = append(errs, fmt.Sprintf("%s: cannot resolve value", f.name))
			continue
		}
		*f.dst = strings.TrimSpace(v)
	}

	if len(errs) > 0 {
		return fmt.Errorf("secret resolution failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateConfig applies defaults and checks cfg. All problems are reported
// in one error.
func ValidateConfig(cfg *Config) error {
	setDefaults(cfg)

	var errs []string

	// Jira
	if err := validateURL(cfg.Jira.BaseURL); err != nil {
		errs = append(errs, "jira.baseURL "+err.Error())
	}
	switch {
	case cfg.Jira.BearerToken != "":
	case cfg.Jira.Email != "" && cfg.Jira.APIToken != "":
		if !strings.Contains(cfg.Jira.Email, "@") {
			errs = append(errs, "jira.email must contain @")
		}
	default:
		errs = append(errs, "jira: either bearerToken or email and apiToken are required")
	}
	if cfg.Jira.Timeout <= 0 {
		errs = append(errs, "jira.timeout must be > 0")
	}
	if cfg.Jira.QueryTimeout < cfg.Jira.Timeout {
		errs = append(errs, "jira.queryTimeout must be >= jira.timeout")
	}

	// GitHub
	if err := validateURL(cfg.GitHub.APIURL); err != nil {
		errs = append(errs, "github.apiURL "+err.Error())
	}
	if cfg.GitHub.Owner == "" {
		errs = append(errs, "github.owner is required")
	}
	if cfg.GitHub.Repo == "" {
		errs = append(errs, "github.repo is required")
	}
	if strings.Contains(cfg.GitHub.Owner, "/") || strings.Contains(cfg.GitHub.Repo, "/") {
		errs = append(errs, "github.owner and github.repo must not contain /")
	}
	if cfg.GitHub.Token == "" {
		errs = append(errs, "github.token is required")
	}
	if cfg.GitHub.Timeout <= 0 {
		errs = append(errs, "github.timeout must be > 0")
	}

	// Webhook
	if cfg.Webhook.Secret == "" && cfg.Webhook.TrustedDomain == "" {
		errs = append(errs, "webhook: secret or trustedDomain is required")
	}

	// Sync
	if cfg.Sync.TTL() < 0 {
		errs = append(errs, "sync.recordTTL must be >= 0")
	}
	if cfg.Sync.MaxLabels < 0 {
		errs = append(errs, "sync.maxLabels must be >= 0")
	}
	if cfg.Sync.MaxTitleLength < 0 || cfg.Sync.MaxTitleLength > maxTitleLength {
		errs = append(errs, fmt.Sprintf("sync.maxTitleLength must be between 1 and %d", maxTitleLength))
	}
	if cfg.Sync.Concurrency < 0 {
		errs = append(errs, "sync.concurrency must be > 0")
	}
	if strings.ContainsAny(cfg.Sync.TriggerLabel, " \t\"") {
		errs = append(errs, fmt.Sprintf("sync.triggerLabel %q must not contain spaces or quotes", cfg.Sync.TriggerLabel))
	}

	// Mappings
	for k, v := range cfg.LabelMappings {
		if k == "" || v == "" {
			errs = append(errs, fmt.Sprintf("labelMappings: empty label in %q: %q", k, v))
		}
	}
	for k, v := range cfg.UserMappings {
		if k == "" || v == "" {
			errs = append(errs, fmt.Sprintf("userMappings: empty entry in %q: %q", k, v))
		}
	}

	// State
	switch cfg.State.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.State.RedisURL == "" {
			errs = append(errs, "state.redisURL is required for the redis backend")
		}
	case BackendSQLite:
	case BackendPostgres:
		if cfg.State.PostgresURL == "" {
			errs = append(errs, "state.postgresURL is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("state.backend %q must be one of memory, redis, sqlite, postgres", cfg.State.Backend))
	}

	// Templates
	for name, path := range map[string]string{
		"templates.issueBody":   cfg.Templates.IssueBody,
		"templates.commentBody": cfg.Templates.CommentBody,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: file %q not found", name, path))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// MergeUserMappings overlays entries parsed from the legacy
// "email:login,..." flag over the YAML table.
func (c *Config) MergeUserMappings(legacy string) error {
	if strings.TrimSpace(legacy) == "" {
		return nil
	}
	parsed, err := mapping.ParseUserMapping(legacy)
	if err != nil {
		return err
	}
	if c.UserMappings == nil {
		c.UserMappings = map[string]string{}
	}
	maps.Copy(c.UserMappings, parsed)
	return nil
}

func setDefaults(cfg *Config) {
	cfg.Jira.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Jira.BaseURL), "/")
	if cfg.Jira.Timeout == 0 {
		cfg.Jira.Timeout = DefaultTimeout
	}
	if cfg.Jira.QueryTimeout == 0 {
		cfg.Jira.QueryTimeout = max(DefaultQueryTimeout, cfg.Jira.Timeout)
	}

	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = DefaultGitHubAPIURL
	}
	cfg.GitHub.APIURL = strings.TrimRight(cfg.GitHub.APIURL, "/")
	if cfg.GitHub.Timeout == 0 {
		cfg.GitHub.Timeout = DefaultTimeout
	}

	if cfg.Sync.TriggerLabel == "" {
		cfg.Sync.TriggerLabel = DefaultTriggerLabel
	}
	if cfg.Sync.RecordTTL == nil {
		ttl := DefaultRecordTTL
		cfg.Sync.RecordTTL = &ttl
	}
	if cfg.Sync.MaxLabels == 0 {
		cfg.Sync.MaxLabels = DefaultMaxLabels
	}
	if cfg.Sync.MaxTitleLength == 0 {
		cfg.Sync.MaxTitleLength = DefaultMaxTitleLength
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = DefaultConcurrency
	}

	// nil means "not configured"; an explicit empty map disables mapping.
	if cfg.LabelMappings == nil {
		cfg.LabelMappings = maps.Clone(mapping.DefaultLabelMappings)
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendMemory
	}
	cfg.State.Backend = StateBackend(strings.ToLower(string(cfg.State.Backend)))
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = DefaultSQLitePath
	}
	if cfg.State.RedisPrefix == "" {
		cfg.State.RedisPrefix = state.DefaultRedisPrefix
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%q must be an absolute http(s) URL", raw)
	}
	return nil
}
