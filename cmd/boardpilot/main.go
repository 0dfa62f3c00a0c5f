// boardpilot turns free-text instructions into validated mutations against a
// monday-style project-management API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boardpilot/internal/config"
	"boardpilot/internal/logging"
)

var (
	// Global flags
	cfgPath     string
	verbose     bool
	contextFile string
	accountID   string
	boardID     string
	userID      string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "boardpilot",
	Short: "boardpilot - natural-language operations for project boards",
	Long: `boardpilot converts plain-English instructions ("move all completed
items to Done") into validated, executed mutations against a project
management API.

Every instruction goes through the same pipeline: interpretation with a
confidence score, mapping to a concrete API mutation, multi-layer
validation, and retryable execution. Low-confidence readings surface
clarifying questions instead of running anything.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		return logging.Initialize(cfg.Logging.Level, cfg.Logging.JSON)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to a boardpilot.yaml config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&contextFile, "context", "", "path to a JSON board-context file")
	pf.StringVar(&accountID, "account", "", "account ID to operate on")
	pf.StringVar(&boardID, "board", "", "board ID to scope operations to")
	pf.StringVar(&userID, "user", "", "acting user ID for permission checks")

	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(cacheCmd)
}
