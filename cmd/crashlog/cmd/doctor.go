package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashlog/internal/config"
	"github.com/hugo-lorenzo-mato/crashlog/internal/crash"
	"github.com/hugo-lorenzo-mato/crashlog/internal/fsutil"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that crash reports can be written",
	Long: `Verify that the report directory is writable, the application identity
resolves and report the platform attributes that can be read here.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	name     string
	required bool
	run      func() error
}

func runDoctor(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()

	checks := []doctorCheck{
		{"report directory writable", true, func() error { return checkReportDir(cfg) }},
		{"application identity", false, func() error {
			_, err := newHost(cfg).AppInfo()
			return err
		}},
	}
	if cfg.Crash.MetricsTextfile != "" {
		checks = append(checks, doctorCheck{"metrics textfile directory", true, func() error {
			return fsutil.EnsureDir(filepath.Dir(cfg.Crash.MetricsTextfile))
		}})
	}

	fmt.Fprintln(out, "Checking report pipeline...")
	fmt.Fprintln(out)
	requiredOk := runChecks(out, checks)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checking platform attributes...")
	fmt.Fprintln(out)
	var attrChecks []doctorCheck
	for _, a := range crash.DefaultAttributes() {
		attrChecks = append(attrChecks, doctorCheck{a.Name, false, func() error {
			return readAttribute(c.Context(), cfg, a)
		}})
	}
	runChecks(out, attrChecks)
	fmt.Fprintln(out)

	if !requiredOk {
		fmt.Fprintln(out, "Crash reports cannot be written")
		return fmt.Errorf("doctor check failed")
	}
	fmt.Fprintln(out, "Crash reports can be written")
	return nil
}

func runChecks(out io.Writer, checks []doctorCheck) bool {
	ok := true
	for _, check := range checks {
		err := check.run()
		icon, suffix := "✓", ""
		if err != nil {
			if check.required {
				icon = "✗"
				ok = false
			} else {
				icon = "○"
			}
			suffix = fmt.Sprintf(" (%v)", err)
		}
		fmt.Fprintf(out, "  %s %s%s\n", icon, check.name, suffix)
	}
	return ok
}

// checkReportDir creates the report directory and writes and removes a probe
// file in it.
func checkReportDir(cfg *config.Config) error {
	dir, err := reportDir(cfg)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor")
	if err := fsutil.WriteFileDurable(probe, []byte("ok\n"), 0o600); err != nil {
		return err
	}
	return os.Remove(probe)
}

func readAttribute(ctx context.Context, cfg *config.Config, a crash.Attribute) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Crash.AttributeTimeoutDuration())
	defer cancel()
	_, err := a.Read(ctx)
	return err
}
