package cmd

import (
	"fmt"

	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate FILE:LINE:COL",
	Short: "Show the signature at a position and its counterpart",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

func runLocate(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Stop()

	if _, err := a.ReindexContext(cmd.Context(), false); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	res, err := a.Locate(cmd.Context(), pos.Path, pos.Line, pos.Col)
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	var target *signature.Signature
	if res.Target != nil {
		target = res.Target.Sig
	}
	fmt.Print(formatLocate(cfg.ProjectRoot, res.Source, target))
	return nil
}
