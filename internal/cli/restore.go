package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

var (
	restoreDryRun  bool
	restoreInclude []string
	restoreExclude []string
	restoreNoCache bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-materialize the remote mirror into local storage",
	Args:  cobra.NoArgs,
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Show what would be restored without writing files")
	restoreCmd.Flags().StringArrayVar(&restoreInclude, "include", nil, "Anchored include pattern (repeatable)")
	restoreCmd.Flags().StringArrayVar(&restoreExclude, "exclude", nil, "Anchored exclude pattern (repeatable)")
	restoreCmd.Flags().BoolVar(&restoreNoCache, "no-cache", false, "Ignore the cache file and list the remote structure")

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) (err error) {
	matcher, err := newMatcher(restoreInclude, restoreExclude)
	if err != nil {
		return err
	}

	handler, err := buildHandler(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		if terr := handler.Teardown(); terr != nil && err == nil {
			err = terr
		}
	}()

	if err := handler.Init(model.ModeRestore, cfg.CacheFile, cfg.LockFile, cfg.PIDFile, restoreNoCache, false); err != nil {
		return err
	}

	return handler.Restore(restoreDryRun, matcher)
}
