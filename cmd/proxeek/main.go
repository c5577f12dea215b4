// Command proxeek assigns physical objects as haptic proxies for the virtual
// objects of a VR scene by minimizing a global loss over all assignments.
package main

import (
	"errors"
	"fmt"
	"os"

	"proxeek/internal/config"
	"proxeek/internal/logging"
	"proxeek/internal/scene"
	"proxeek/internal/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitLoad       = 2
	exitInfeasible = 3
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proxeek",
	Short: "proxeek - global haptic proxy assignment",
	Long: `proxeek picks, for every virtual object in a VR scene, the physical object
that should stand in for it when touched or held.

It reads the haptic annotation export, the physical object database and the
two rating documents produced upstream, then searches all assignments for the
one with the lowest combined realism, priority and interaction loss.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = logging.Initialize(cfg.Logging)
		if err != nil {
			return err
		}
		logging.Boot("Configuration loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "proxeek.yaml", "Configuration file")

	bindOptimizeFlags(optimizeCmd, &optFlags)
	bindOptimizeFlags(watchCmd, &optFlags)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyUsage, "usage", false, "Also show how often each physical object was chosen")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps load failures and infeasible constraints to their own codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, scene.ErrLoad):
		return exitLoad
	case errors.Is(err, search.ErrInfeasible):
		return exitInfeasible
	default:
		return exitFailure
	}
}
