package cmd

import (
	"fmt"
	"os"

	"github.com/hugo-lorenzo-mato/crashlog/internal/config"
	"github.com/hugo-lorenzo-mato/crashlog/internal/crash"
	"github.com/hugo-lorenzo-mato/crashlog/internal/logging"
)

// Process termination used by the interceptor. Tests replace it.
var exitFunc = os.Exit

// newLogger builds the diagnostic logger described by cfg. The returned
// close function is never nil.
func newLogger(cfg *config.Config) (*logging.Logger, func() error, error) {
	out, closeFn, err := logging.OpenOutput(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	return logger.WithSession(crash.SessionID()), closeFn, nil
}

// newHost resolves the application identity from the build, preferring the
// version injected at release time.
func newHost(cfg *config.Config) crash.Host {
	h := crash.BuildInfoHost{Root: cfg.Crash.StorageRoot}
	if appVersion != "" && appVersion != "dev" {
		h.VersionName = appVersion
	}
	if appCommit != "" && appCommit != "none" {
		h.VersionCode = appCommit
	}
	return h
}

func newCollector(cfg *config.Config) *crash.Collector {
	return crash.NewCollector(
		crash.WithAttributeTimeout(cfg.Crash.AttributeTimeoutDuration()),
		crash.WithEnvironment(cfg.Crash.IncludeEnv),
	)
}

func newWriter(cfg *config.Config, logger *logging.Logger) (*crash.Writer, error) {
	opts := []crash.WriterOption{
		crash.WithMaxReports(cfg.Crash.MaxReports),
		crash.WithWriterLogger(logger.Logger),
	}
	if cfg.Crash.Redact {
		sanitizer := logging.NewSanitizer()
		for _, p := range cfg.Crash.RedactPatterns {
			if err := sanitizer.AddPattern(p); err != nil {
				return nil, fmt.Errorf("redact pattern %q: %w", p, err)
			}
		}
		opts = append(opts, crash.WithRedaction(sanitizer))
	}
	return crash.NewWriter(opts...), nil
}

// newInterceptor wires the capture pipeline from cfg. exit is called once the
// grace period has elapsed.
func newInterceptor(cfg *config.Config, logger *logging.Logger, exit func(int)) (*crash.Interceptor, error) {
	writer, err := newWriter(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []crash.Option{
		crash.WithLogger(logger.WithComponent("crash").Logger),
		crash.WithCollector(newCollector(cfg)),
		crash.WithWriter(writer),
		crash.WithReportDirectory(cfg.Crash.Dir),
		crash.WithGracePeriod(cfg.Crash.GraceDuration()),
		crash.WithExitCode(cfg.Crash.ExitCode),
		crash.WithRuntimeOutput(cfg.Crash.RuntimeOutput),
		crash.WithExit(exit),
	}
	if cfg.Crash.MetricsTextfile != "" {
		opts = append(opts, crash.WithMetrics(crash.NewMetricsExporter(cfg.Crash.MetricsTextfile)))
	}
	return crash.New(opts...), nil
}

// reportDir returns the directory reports are written to under cfg.
func reportDir(cfg *config.Config) (string, error) {
	root, err := newHost(cfg).StorageRoot()
	if err != nil {
		return "", err
	}
	return crash.ResolveDir(root, cfg.Crash.Dir), nil
}
