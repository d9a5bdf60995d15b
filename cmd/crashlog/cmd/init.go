package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/crashlog/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write .crashlog.yaml with the default settings to the current directory.
With --print the effective configuration is shown instead.`,
	RunE: runInit,
}

var (
	initForce bool
	initPrint bool
	initDir   string
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	initCmd.Flags().BoolVar(&initPrint, "print", false, "Print the effective configuration as YAML")
	initCmd.Flags().StringVar(&initDir, "dir", "", "Directory to write the configuration to (default: current directory)")
}

func runInit(c *cobra.Command, _ []string) error {
	out := c.OutOrStdout()

	if initPrint {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	dir := initDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}
	configPath := filepath.Join(dir, config.ConfigName+".yaml")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	if err := config.AtomicWrite(configPath, []byte(config.DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "✓ Created %s\n", configPath)
	return nil
}
