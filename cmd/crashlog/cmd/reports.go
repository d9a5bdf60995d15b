package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashlog/internal/crash"
	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List crash reports",
	Long: `List the crash reports in the report directory, oldest first.
With --watch, keep running and print each new report as it is written.`,
	Args: cobra.NoArgs,
	RunE: runReports,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a crash report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

var reportsWatch bool

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.Flags().BoolVarP(&reportsWatch, "watch", "w", false, "Follow new reports")
}

func runReports(c *cobra.Command, _ []string) error {
	dir, err := reportDir(cfg)
	if err != nil {
		return err
	}
	out := c.OutOrStdout()

	reports, err := crash.ListReports(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "No crash reports in %s\n", dir)
	case err != nil:
		return err
	case len(reports) == 0:
		fmt.Fprintf(out, "No crash reports in %s\n", dir)
	default:
		printReports(out, reports, time.Now())
	}

	if !reportsWatch {
		return nil
	}

	ctx, cancel := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return watchReports(ctx, dir, out)
}

func printReports(out io.Writer, reports []crash.ReportFile, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tWRITTEN")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, humanize.IBytes(uint64(r.Size)), humanize.RelTime(r.ModTime, now, "ago", "from now"))
	}
	_ = w.Flush()
}

// watchReports prints the name of every report created in dir until ctx is
// done. The directory is created when missing so it can be watched.
func watchReports(ctx context.Context, dir string, out io.Writer) error {
	if err := fsutil.EnsureDir(dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	fmt.Fprintf(out, "Watching %s\n", dir)

	// Durable writes surface as a create of the final name, possibly
	// followed by writes; report each name once.
	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !crash.IsReportName(name) || seen[name] {
				continue
			}
			seen[name] = true
			fmt.Fprintf(out, "✗ %s\n", event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
}

func runReportsShow(c *cobra.Command, args []string) error {
	name := args[0]
	if filepath.Base(name) != name || (!crash.IsReportName(name) && name != crash.RuntimeOutputName) {
		return fmt.Errorf("invalid report name: %q", name)
	}

	dir, err := reportDir(cfg)
	if err != nil {
		return err
	}
	data, err := fsutil.ReadFileScoped(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	_, err = c.OutOrStdout().Write(data)
	return err
}
