package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/corey/sigsync/internal/app"
	"github.com/corey/sigsync/internal/domain/link"
	"github.com/spf13/cobra"
)

var (
	syncOriginalFlag string
	syncDryRunFlag   bool
	syncJumpFlag     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync FILE:LINE:COL --original FILE",
	Short: "Propagate a signature edit to its counterpart",
	Long: "Compares the signature at FILE:LINE:COL in the edited file with the same\n" +
		"position of --original (the text before editing) and rewrites the matching\n" +
		"declaration or definition.",
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncOriginalFlag, "original", "", "File holding the text before the edit (required)")
	syncCmd.Flags().BoolVar(&syncDryRunFlag, "dry-run", false, "Print a diff instead of writing")
	syncCmd.Flags().BoolVar(&syncJumpFlag, "jump", false, "Print where the counterpart's name ended up")
	_ = syncCmd.MarkFlagRequired("original")
}

func runSync(cmd *cobra.Command, args []string) error {
	pos, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	original, err := os.ReadFile(syncOriginalFlag)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
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

	res, err := a.Sync(cmd.Context(), pos.Path, pos.Line, pos.Col, original, app.SyncOptions{
		DryRun: syncDryRunFlag,
		Jump:   syncJumpFlag,
	})
	if res != nil {
		for _, n := range res.Notices {
			fmt.Fprintf(os.Stderr, "⚡ %s\n", n)
		}
	}
	switch {
	case errors.Is(err, link.ErrTargetChanged):
		return fmt.Errorf("%s changed since it was resolved, nothing written", relPath(cfg.ProjectRoot, res.Target.Sig.File.Path))
	case err != nil:
		return fmt.Errorf("%s: %w", pos, err)
	}

	target := relPath(cfg.ProjectRoot, res.Target.Sig.File.Path)
	switch {
	case len(res.Edits) == 0:
		fmt.Printf("⚡ %s already in sync with %s\n", displayName(res.Source), target)
	case syncDryRunFlag:
		os.Stdout.Write(res.Preview)
	default:
		fmt.Printf("⚡ %s: %d edits → %s\n", displayName(res.Source), len(res.Edits), target)
	}
	if syncJumpFlag && res.Applied {
		fmt.Printf("%s:%d:%d\n", res.Target.Sig.File.Path, res.Line, res.Column)
	}
	return nil
}
