package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the metadata a crash report would contain",
	RunE:  runMetadata,
}

var (
	metadataJSON bool
	metadataEnv  bool
)

func init() {
	rootCmd.AddCommand(metadataCmd)
	metadataCmd.Flags().BoolVar(&metadataJSON, "json", false, "Output as JSON")
	metadataCmd.Flags().BoolVar(&metadataEnv, "env", false, "Include the redacted process environment")
}

func runMetadata(c *cobra.Command, _ []string) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	collector := newCollector(cfg)
	if metadataEnv {
		cfgCopy := *cfg
		cfgCopy.Crash.IncludeEnv = true
		collector = newCollector(&cfgCopy)
	}

	md, err := collector.Collect(c.Context(), newHost(cfg))
	if err != nil {
		logger.Debug("some attributes are unavailable", "error", err)
	}

	out := c.OutOrStdout()
	if metadataJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	}
	for _, k := range md.Keys() {
		fmt.Fprintf(out, "%s=%s\n", k, md[k])
	}
	return nil
}
