package config

import "time"

// Config is the immutable runtime configuration loaded once at startup.
type Config struct {
	Jira          JiraConfig        `yaml:"jira"`
	GitHub        GitHubConfig      `yaml:"github"`
	Webhook       WebhookConfig     `yaml:"webhook"`
	Sync          SyncConfig        `yaml:"sync"`
	LabelMappings map[string]string `yaml:"labelMappings"`
	// UserMappings maps Jira emails or account ids to GitHub logins.
	UserMappings map[string]string `yaml:"userMappings"`
	State        StateConfig       `yaml:"state"`
	Templates    TemplatesConfig   `yaml:"templates"`
}

// JiraConfig configures the Jira Cloud client. Either BearerToken or
// Email plus APIToken is required.
type JiraConfig struct {
	BaseURL       string        `yaml:"baseURL"`
	Email         string        `yaml:"email"`
	APIToken      string        `yaml:"apiToken"`
	BearerToken   string        `yaml:"bearerToken"`
	SkipTLSVerify bool          `yaml:"skipTLSVerify"`
	Timeout       time.Duration `yaml:"timeout"`
	// QueryTimeout bounds a whole paginated search or comment listing.
	QueryTimeout time.Duration `yaml:"queryTimeout"`
	// AcceptanceCriteriaField is a custom field id like "customfield_10050".
	AcceptanceCriteriaField string `yaml:"acceptanceCriteriaField"`
	// JQL overrides the scheduled query.
	JQL string `yaml:"jql"`
}

// GitHubConfig selects the target repository.
type GitHubConfig struct {
	APIURL  string        `yaml:"apiURL"`
	Owner   string        `yaml:"owner"`
	Repo    string        `yaml:"repo"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookConfig holds the inbound authentication settings.
type WebhookConfig struct {
	Secret        string `yaml:"secret"`
	TrustedDomain string `yaml:"trustedDomain"`
}

// SyncConfig tunes the orchestrator.
type SyncConfig struct {
	TriggerLabel string `yaml:"triggerLabel"`
	// RecordTTL is the sync record lifetime. Unset selects the default;
	// an explicit 0 keeps records forever.
	RecordTTL      *time.Duration `yaml:"recordTTL"`
	SyncComments   *bool          `yaml:"syncComments"`
	MaxLabels      int            `yaml:"maxLabels"`
	MaxTitleLength int            `yaml:"maxTitleLength"`
	Concurrency    int            `yaml:"concurrency"`
}

// TTL returns the effective record lifetime; zero disables expiry.
func (s SyncConfig) TTL() time.Duration {
	if s.RecordTTL == nil {
		return DefaultRecordTTL
	}
	return *s.RecordTTL
}

// CommentsEnabled reports whether scheduled runs mirror comments.
func (s SyncConfig) CommentsEnabled() bool {
	return s.SyncComments == nil || *s.SyncComments
}

// StateBackend names a sync state store implementation.
type StateBackend string

const (
	BackendMemory   StateBackend = "memory"
	BackendRedis    StateBackend = "redis"
	BackendSQLite   StateBackend = "sqlite"
	BackendPostgres StateBackend = "postgres"
)

// StateConfig selects and configures the sync state store.
type StateConfig struct {
	Backend     StateBackend `yaml:"backend"`
	RedisURL    string       `yaml:"redisURL"`
	RedisPrefix string       `yaml:"redisPrefix"`
	SQLitePath  string       `yaml:"sqlitePath"`
	PostgresURL string       `yaml:"postgresURL"`
}

// TemplatesConfig points at optional body template overrides.
type TemplatesConfig struct {
	IssueBody   string `yaml:"issueBody"`
	CommentBody string `yaml:"commentBody"`
}
