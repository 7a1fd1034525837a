package flag

import (
	"io"
	"net"
	"path/filepath"
	"time"

	"github.com/containeroo/tinyflags"
	"github.com/gi8lino/jiramirror/internal/logging"
	"github.com/gi8lino/jiramirror/internal/server"
)

// Config aggregates CLI flags after parsing.
type Config struct {
	Config      string            // Path to config file
	ListenAddr  string            // HTTP bind address (e.g. ":8080")
	RoutePrefix string            // Canonical path prefix ("" or "/jiramirror")
	Debug       bool              // Enables debug logging
	LogFormat   logging.LogFormat // Log output format (text or json)

	RunOnce        bool          // Run one scheduled sync and exit
	SyncInterval   time.Duration // Scheduled sync interval; 0 disables the scheduler
	Concurrency    int           // Overrides sync.concurrency when > 0
	RequestTimeout time.Duration // Overrides both client timeouts when > 0
	UserMapping    string        // Legacy "email:login,..." user table

	OTelStdout   bool   // Export traces and metrics to stdout
	OTelEndpoint string // OTLP/HTTP metrics endpoint
}

// ParseArgs parses CLI arguments into Config, handling version/help flags.
func ParseArgs(version string, args []string, out io.Writer, getEnv func(string) string) (Config, error) {
	var cfg Config
	tf := tinyflags.NewFlagSet("jiramirror", tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("JIRAMIRROR")
	tf.SetOutput(out)

	// Server
	tf.StringVar(&cfg.Config, "config", "config.yaml", "Path to config file").
		Finalize(func(s string) string {
			if filepath.IsAbs(s) {
				return s
			}
			path, _ := filepath.Abs(s)
			return path
		}).
		Short("c").
		Value()

	route := tf.String("route-prefix", "", "Path prefix to mount the app (e.g., /jiramirror). Empty = root.").
		Finalize(server.NormalizeRoutePrefix).
		Placeholder("PATH").
		Value()

	listenAddr := tf.TCPAddr("listen-address", &net.TCPAddr{IP: nil, Port: 8080}, "HTTP server listen address").
		Placeholder("ADDR:PORT").
		Value()

	// Sync
	tf.BoolVar(&cfg.RunOnce, "run-once", false, "Run one scheduled sync, print the summary and exit").Value()
	tf.DurationVar(&cfg.SyncInterval, "sync-interval", 0, "Interval between scheduled syncs (0 disables)").
		Placeholder("DURATION").
		Value()
	tf.IntVar(&cfg.Concurrency, "sync-concurrency", 0, "Number of issues synced in parallel (0 uses the config)").
		Placeholder("N").
		Value()
	tf.DurationVar(&cfg.RequestTimeout, "request-timeout", 0, "Timeout for Jira and GitHub requests (0 uses the config)").
		Placeholder("DURATION").
		Value()
	tf.StringVar(&cfg.UserMapping, "user-mapping", "", "Extra user mappings as email:login pairs separated by commas").
		Placeholder("PAIRS").
		Value()

	// Telemetry
	tf.BoolVar(&cfg.OTelStdout, "otel-stdout", false, "Export traces and metrics to stdout").Value()
	tf.StringVar(&cfg.OTelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint for metrics").
		Placeholder("URL").
		Value()

	// Logging
	tf.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "text", "Log format").Choices("text", "json").Short("l").Value()

	// Parse
	if err := tf.Parse(args); err != nil {
		return Config{}, err
	}

	// Post-parse
	cfg.LogFormat = logging.LogFormat(*logFormat)
	cfg.ListenAddr = (*listenAddr).String()
	cfg.RoutePrefix = *route

	return cfg, nil
}
