package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/sigsync/internal/app"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:           "sigsync",
	Short:         "sigsync: C++ declaration/definition synchronizer",
	Long:          "Propagates edits of a C++ function signature to its matching declaration or definition.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		useColor = resolveColor()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, err = app.SetupLogging(os.Stderr, cfg, verboseFlag)
		return err
	},
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// loadConfig reads .sigsync/config.yaml of the project root.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(projectRoot())
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openApp creates the wired app, explaining a database held by a daemon.
func openApp(cfg app.Config) (*app.App, error) {
	a, err := app.New(cfg)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%s", diagnoseDBLock(cfg.ProjectRoot, cfg.SocketPath))
		}
		return nil, fmt.Errorf("init: %w", err)
	}
	return a, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging on stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}
