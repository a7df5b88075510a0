package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the sigsync daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Check if already running
	client := socket.NewClient(cfg.SocketPath)
	if client.Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		a.Stop()
		return fmt.Errorf("create .sigsync dirs: %w", err)
	}

	fmt.Println("⚡ Scanning project...")
	stats, err := a.ReindexContext(cmd.Context(), false)
	if err != nil {
		a.Stop()
		return fmt.Errorf("build index: %w", err)
	}
	fmt.Println(formatReindex(&stats))

	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		a.Stop()
		return fmt.Errorf("write pid file: %w", err)
	}
	defer a.Paths.CleanEphemeral()

	fmt.Printf("⚡ sigsync daemon started at %s\n", cfg.SocketPath)

	// Wait for a signal or a shutdown request from a client.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(cfg.SocketPath)

	if !client.Ping() {
		if _, err := os.Stat(cfg.SocketPath); err == nil {
			os.Remove(cfg.SocketPath)
			fmt.Println("⚡ daemon is not running (removed stale socket)")
			return nil
		}
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
