package crash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Termination policy defaults.
const (
	DefaultGracePeriod = 3 * time.Second
	DefaultExitCode    = 1
)

// Report is a written crash report, handed to the Sink.
type Report struct {
	Path     string
	Metadata Metadata
	Fault    *Fault
}

// Sink receives reports during the grace period before termination. The
// context expires when the grace period ends.
type Sink interface {
	Submit(ctx context.Context, r Report) error
}

// Interceptor is the handler of last resort for uncaught faults. It collects
// metadata, writes a report and then terminates the process, or delegates
// to the handler it replaced when there was nothing to handle.
type Interceptor struct {
	collector     *Collector
	writer        *Writer
	logger        *slog.Logger
	sink          Sink
	metrics       *MetricsExporter
	runtimeOutput bool
	grace         time.Duration
	exitCode      int
	sleep         func(time.Duration)
	exit          func(int)

	// handleMu serializes fault handling across goroutines.
	handleMu sync.Mutex

	mu          sync.Mutex
	host        Host
	prev        Handler
	initialized bool
	dirName     string
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithCollector sets the metadata collector.
func WithCollector(c *Collector) Option {
	return func(i *Interceptor) {
		if c != nil {
			i.collector = c
		}
	}
}

// WithWriter sets the report writer.
func WithWriter(w *Writer) Option {
	return func(i *Interceptor) {
		if w != nil {
			i.writer = w
		}
	}
}

// WithSink sets a sink that receives each report during the grace period.
func WithSink(s Sink) Option {
	return func(i *Interceptor) {
		i.sink = s
	}
}

// WithMetrics records every captured fault in a Prometheus textfile.
func WithMetrics(m *MetricsExporter) Option {
	return func(i *Interceptor) {
		i.metrics = m
	}
}

// WithRuntimeOutput redirects fatal runtime errors into the report directory
// when the interceptor is initialized.
func WithRuntimeOutput(enabled bool) Option {
	return func(i *Interceptor) {
		i.runtimeOutput = enabled
	}
}

// WithGracePeriod sets the wait between writing a report and terminating.
func WithGracePeriod(d time.Duration) Option {
	return func(i *Interceptor) {
		if d >= 0 {
			i.grace = d
		}
	}
}

// WithExitCode sets the process exit status used on termination. Zero is
// ignored: a process that died of a fault must not report success.
func WithExitCode(code int) Option {
	return func(i *Interceptor) {
		if code != 0 {
			i.exitCode = code
		}
	}
}

// WithSleep replaces time.Sleep for the grace period.
func WithSleep(sleep func(time.Duration)) Option {
	return func(i *Interceptor) {
		if sleep != nil {
			i.sleep = sleep
		}
	}
}

// WithExit replaces os.Exit for termination.
func WithExit(exit func(int)) Option {
	return func(i *Interceptor) {
		if exit != nil {
			i.exit = exit
		}
	}
}

// WithReportDirectory sets the initial report directory name.
func WithReportDirectory(name string) Option {
	return func(i *Interceptor) {
		i.dirName = name
	}
}

// New creates an interceptor. It does nothing until Initialize is called.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{
		collector: NewCollector(),
		writer:    NewWriter(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		grace:     DefaultGracePeriod,
		exitCode:  DefaultExitCode,
		sleep:     time.Sleep,
		exit:      os.Exit,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Initialize installs the interceptor as the process-wide default handler.
// The handler it replaces is remembered on the first call only, so calling
// Initialize again never makes the interceptor delegate to itself.
func (i *Interceptor) Initialize(host Host) {
	i.mu.Lock()
	i.host = host
	prev := SetDefaultHandler(i)
	if !i.initialized {
		if prev != Handler(i) {
			i.prev = prev
		}
		i.initialized = true
	}
	i.mu.Unlock()

	if i.runtimeOutput {
		path, err := CaptureRuntimeOutput(i.reportDir())
		if err != nil {
			i.logger.Warn("runtime crash output not captured", "error", err)
		} else {
			i.logger.Debug("runtime crash output captured", "path", path)
		}
	}
}

// Previous returns the handler that was installed before the interceptor.
func (i *Interceptor) Previous() Handler {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.prev
}

// SetReportDirectory changes the report directory name for subsequent
// faults. The name is not validated.
func (i *Interceptor) SetReportDirectory(name string) {
	i.mu.Lock()
	i.dirName = name
	i.mu.Unlock()
}

// ReportDirectory returns the directory reports are currently written to.
func (i *Interceptor) ReportDirectory() string {
	return i.reportDir()
}

// OnFault handles an uncaught fault raised on goroutine g. When f is nil and
// a previous handler exists, f is passed to it unchanged. Otherwise the
// process is terminated after the grace period.
func (i *Interceptor) OnFault(g Goroutine, f *Fault) {
	i.logger.Debug("uncaught fault", "goroutine", g.ID, "state", g.State)

	report, handled := i.handle(f)
	if !handled {
		if prev := i.Previous(); prev != nil {
			prev.OnFault(g, f)
			return
		}
	}
	i.terminate(report)
}

// HandleFault collects metadata and writes a report for f. It returns false
// only when f is nil. Failures while collecting or writing are logged and
// never escape.
func (i *Interceptor) HandleFault(f *Fault) bool {
	_, handled := i.handle(f)
	return handled
}

func (i *Interceptor) handle(f *Fault) (*Report, bool) {
	if f == nil {
		return nil, false
	}

	i.handleMu.Lock()
	defer i.handleMu.Unlock()

	at := time.Now()
	md := i.collect()
	path := i.write(md, f)
	i.record(at, path != "")

	return &Report{Path: path, Metadata: md, Fault: f}, true
}

func (i *Interceptor) collect() (md Metadata) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("crash metadata collection panicked", "panic", r)
			if md == nil {
				md = Metadata{}
			}
		}
	}()

	i.mu.Lock()
	host := i.host
	i.mu.Unlock()

	md, err := i.collector.Collect(context.Background(), host)
	if err != nil {
		i.logger.Warn("crash metadata incomplete", "error", err)
	}
	if md == nil {
		md = Metadata{}
	}
	return md
}

func (i *Interceptor) write(md Metadata, f *Fault) (path string) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("crash report writer panicked", "panic", r)
			path = ""
		}
	}()

	path, err := i.writer.Write(md, f, i.reportDir())
	switch {
	case err != nil && path == "":
		i.logger.Error("failed to write crash report", "error", err, "fault", f.Message)
	case err != nil:
		i.logger.Warn("crash report written with errors", "path", path, "error", err)
	default:
		i.logger.Info("crash report written", "path", path, "fault", f.Message)
	}
	return path
}

func (i *Interceptor) record(at time.Time, written bool) {
	if i.metrics == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("crash metrics export panicked", "panic", r)
		}
	}()
	if err := i.metrics.Record(at, written); err != nil {
		i.logger.Warn("crash metrics not exported", "error", err)
	}
}

func (i *Interceptor) reportDir() string {
	i.mu.Lock()
	host, name := i.host, i.dirName
	i.mu.Unlock()

	root, err := storageRoot(host)
	if err != nil {
		i.logger.Warn("storage root unavailable, using working directory", "error", err)
		root = ""
	}
	return ResolveDir(root, name)
}

func storageRoot(host Host) (root string, err error) {
	if host == nil {
		return DefaultStorageRoot()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return host.StorageRoot()
}

// terminate waits for the grace period, giving the sink a chance to run,
// then exits the process.
func (i *Interceptor) terminate(report *Report) {
	if i.sink != nil && report != nil && report.Path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), i.grace)
		defer cancel()
		go i.submit(ctx, *report)
	}

	i.sleep(i.grace)
	i.exit(i.exitCode)
}

func (i *Interceptor) submit(ctx context.Context, r Report) {
	defer func() {
		if rec := recover(); rec != nil {
			i.logger.Error("crash report sink panicked", "panic", rec)
		}
	}()
	if err := i.sink.Submit(ctx, r); err != nil {
		i.logger.Warn("crash report not submitted", "path", r.Path, "error", err)
	}
}
