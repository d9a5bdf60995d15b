package crash

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
	"github.com/hugo-lorenzo-mato/crashlog/internal/logging"
)

// DefaultDirName is the report directory used when none is configured.
const DefaultDirName = "crashlog"

// Report file naming. Two faults in the same second map to the same name and
// the later report replaces the earlier one.
const (
	reportPrefix     = "crash_"
	reportSuffix     = ".log"
	reportTimeLayout = "2006-01-02-15-04-05"
	reportPerm       = os.FileMode(0o600)
)

// ReportName returns the file name of a report captured at t.
func ReportName(t time.Time) string {
	return reportPrefix + t.Format(reportTimeLayout) + reportSuffix
}

// IsReportName reports whether name looks like a report file.
func IsReportName(name string) bool {
	return strings.HasPrefix(name, reportPrefix) && strings.HasSuffix(name, reportSuffix)
}

// ResolveDir joins the storage root with the configured directory name, or
// with DefaultDirName when name is empty.
func ResolveDir(root, name string) string {
	if name == "" {
		name = DefaultDirName
	}
	if root == "" {
		return name
	}
	return root + string(filepath.Separator) + name
}

// Writer renders and persists reports.
type Writer struct {
	now        func() time.Time
	sanitizer  *logging.Sanitizer
	maxReports int
	logger     *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock sets the time source used to name reports.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithRedaction redacts secrets from the payload before it is written.
func WithRedaction(s *logging.Sanitizer) WriterOption {
	return func(w *Writer) {
		w.sanitizer = s
	}
}

// WithMaxReports keeps at most n reports in the directory. Zero keeps all.
func WithMaxReports(n int) WriterOption {
	return func(w *Writer) {
		if n >= 0 {
			w.maxReports = n
		}
	}
}

// WithWriterLogger sets the logger used for retention warnings.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = l
	}
}

// NewWriter creates a report writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders md and f and writes them to a new report file in dir. It
// returns the report path when the file was written. A failure to create dir
// does not stop the write attempt; it is joined into the returned error.
func (w *Writer) Write(md Metadata, f *Fault, dir string) (string, error) {
	if f == nil {
		return "", errors.New("no fault to write")
	}

	clean := func(s string) string { return s }
	if w.sanitizer != nil {
		clean = w.sanitizer.Sanitize
	}
	payload := render(md, f, clean)

	var errs []error
	if err := fsutil.EnsureDir(dir); err != nil {
		errs = append(errs, fmt.Errorf("creating report dir: %w", err))
	}

	path := filepath.Join(dir, ReportName(w.now()))
	if err := fsutil.WriteFileDurable(path, []byte(payload), reportPerm); err != nil {
		errs = append(errs, fmt.Errorf("writing report: %w", err))
		return "", errors.Join(errs...)
	}

	if w.maxReports > 0 {
		w.prune(dir)
	}
	return path, errors.Join(errs...)
}

// prune removes the oldest reports beyond maxReports.
func (w *Writer) prune(dir string) {
	reports, err := ListReports(dir)
	if err != nil {
		return
	}
	for len(reports) > w.maxReports {
		if err := os.Remove(reports[0].Path); err != nil && w.logger != nil {
			w.logger.Warn("failed to remove old crash report",
				"path", reports[0].Path,
				"error", err,
			)
		}
		reports = reports[1:]
	}
}

// ReportFile describes a report on disk.
type ReportFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ListReports returns the reports in dir, oldest first.
func ListReports(dir string) ([]ReportFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading report dir: %w", err)
	}

	var reports []ReportFile
	for _, e := range entries {
		if e.IsDir() || !IsReportName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		reports = append(reports, ReportFile{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Names embed the capture time, so they sort chronologically.
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Name < reports[j].Name
	})
	return reports, nil
}

// Render produces the report text: one key=value line per metadata entry
// followed by the fault block and one block per cause.
func Render(md Metadata, f *Fault) string {
	return render(md, f, func(s string) string { return s })
}

// render passes metadata values and fault blocks through clean. Keys are
// written as collected so every key stays on its own line.
func render(md Metadata, f *Fault, clean func(string) string) string {
	var b strings.Builder
	for _, k := range md.Keys() {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(renderValue(clean(md[k])))
		b.WriteByte('\n')
	}

	if f == nil {
		return b.String()
	}
	var blocks strings.Builder
	renderBlock(&blocks, "panic: ", f)
	for _, c := range f.Causes {
		renderBlock(&blocks, "caused by: ", c)
	}
	b.WriteString(clean(blocks.String()))
	return b.String()
}

// renderValue quotes values spanning several lines.
func renderValue(v string) string {
	if strings.ContainsAny(v, "\r\n") {
		return strconv.Quote(v)
	}
	return v
}

func renderBlock(b *strings.Builder, header string, f *Fault) {
	b.WriteString(header)
	b.WriteString(f.Message)
	if f.Kind != "" {
		b.WriteString(" [")
		b.WriteString(f.Kind)
		b.WriteByte(']')
	}
	b.WriteByte('\n')
	for _, fr := range f.Frames {
		b.WriteString(fr.Function)
		b.WriteString("()\n\t")
		b.WriteString(fr.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(fr.Line))
		b.WriteByte('\n')
	}
}
