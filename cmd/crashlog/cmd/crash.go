package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashlog/internal/crash"
)

var crashCmd = &cobra.Command{
	Use:   "crash",
	Short: "Raise a test fault and write a crash report",
	Long: `Install the crash interceptor and panic. A report is written to the
report directory and the process exits with the configured status once the
grace period has passed.`,
	Args: cobra.NoArgs,
	RunE: runCrash,
}

var (
	crashMessage   string
	crashCauses    int
	crashGoroutine bool
)

func init() {
	rootCmd.AddCommand(crashCmd)
	crashCmd.Flags().StringVarP(&crashMessage, "message", "m", "crashlog test fault", "Panic message")
	crashCmd.Flags().IntVar(&crashCauses, "causes", 0, "Number of wrapped causes")
	crashCmd.Flags().BoolVar(&crashGoroutine, "goroutine", false, "Panic on a separate goroutine")
}

func runCrash(c *cobra.Command, _ []string) error {
	if crashCauses < 0 {
		return fmt.Errorf("--causes must not be negative")
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	exited := make(chan struct{})
	interceptor, err := newInterceptor(cfg, logger, func(code int) {
		exitFunc(code)
		close(exited)
	})
	if err != nil {
		return err
	}
	interceptor.Initialize(newHost(cfg))

	dir := interceptor.ReportDirectory()
	fmt.Fprintf(c.OutOrStdout(), "Raising test fault, report directory: %s\n", dir)

	if crashGoroutine {
		crash.Go(func() { raise(crashMessage, crashCauses) })
		<-exited
		return nil
	}

	defer crash.Recover()
	raise(crashMessage, crashCauses)
	return nil
}

// raise panics with message. With causes > 0 the panic value is an error
// whose unwrap chain holds that many causes, the root one carrying a stack.
func raise(message string, causes int) {
	if causes == 0 {
		panic(message)
	}
	err := crash.WithStack(errors.New("root cause"))
	for n := causes - 1; n >= 1; n-- {
		err = fmt.Errorf("cause %d: %w", n, err)
	}
	panic(fmt.Errorf("%s: %w", message, err))
}
