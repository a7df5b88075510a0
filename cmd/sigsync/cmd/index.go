package cmd

import (
	"fmt"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var indexForceFlag bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the current project",
	Long:  "Scans C++ sources and headers and records every function signature they declare or define.",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForceFlag, "force", false, "Reparse every file, ignoring stored state")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// If daemon is running, delegate reindex via socket (avoids bbolt lock contention).
	client := socket.NewClient(cfg.SocketPath)
	if client.Ping() {
		fmt.Println("⚡ Daemon running, delegating reindex...")
		result, err := client.Reindex(indexForceFlag)
		if err != nil {
			return fmt.Errorf("reindex via daemon: %w", err)
		}
		fmt.Println(formatReindex(result))
		return nil
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Stop()
	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create .sigsync dirs: %w", err)
	}

	fmt.Println("⚡ Scanning project...")
	result, err := a.ReindexContext(cmd.Context(), indexForceFlag)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	fmt.Println(formatReindex(&result))
	return nil
}
