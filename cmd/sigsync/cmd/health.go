package cmd

import (
	"fmt"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(cfg.SocketPath)

	if !client.Ping() {
		fmt.Println("⚡ daemon not running")
		return nil
	}

	result, err := client.Health()
	if err != nil {
		return err
	}

	fmt.Print(formatHealth(result))
	return nil
}
