package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/AbazaSeif/cloudsync/internal/fsync"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

var (
	backupDryRun     bool
	backupInclude    []string
	backupExclude    []string
	backupNoCache    bool
	backupForceStart bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Mirror local changes to the remote storage",
	Args:  cobra.NoArgs,
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "Show what would be done without touching remote state")
	backupCmd.Flags().StringArrayVar(&backupInclude, "include", nil, "Anchored include pattern (repeatable)")
	backupCmd.Flags().StringArrayVar(&backupExclude, "exclude", nil, "Anchored exclude pattern (repeatable)")
	backupCmd.Flags().BoolVar(&backupNoCache, "no-cache", false, "Ignore the cache file and list the remote structure")
	backupCmd.Flags().BoolVar(&backupForceStart, "forcestart", false, "Start even if a PID file from another run exists")

	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) (err error) {
	matcher, err := newMatcher(backupInclude, backupExclude)
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

	if err := handler.Init(model.ModeBackup, cfg.CacheFile, cfg.LockFile, cfg.PIDFile, backupNoCache, backupForceStart); err != nil {
		return err
	}

	status, err := handler.Backup(backupDryRun, matcher)
	if err != nil {
		return err
	}

	renderStatus(status)
	return nil
}

func renderStatus(status fsync.Status) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Total", "Created", "Updated", "Removed", "Skipped"})
	table.Append([]string{
		strconv.Itoa(status.Total()),
		strconv.Itoa(status.Created),
		strconv.Itoa(status.Updated),
		strconv.Itoa(status.Removed),
		strconv.Itoa(status.Skipped),
	})
	table.Render()
}
