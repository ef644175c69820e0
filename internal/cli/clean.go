package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

var cleanForceStart bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Recover quarantined duplicate and invalid remote items",
	Long: `clean re-uploads every quarantined remote item into local storage under a
collision-free name and then deletes it remotely, unblocking backup, restore
and list. Run it when a previous run reported duplicate or invalid items.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForceStart, "forcestart", false, "Start even if a PID file from another run exists")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) (err error) {
	handler, err := buildHandler(context.Background())
	if err != nil {
		return err
	}
	defer func() {
		if terr := handler.Teardown(); terr != nil && err == nil {
			err = terr
		}
	}()

	// The quarantine only fills during a live remote listing, so the cache
	// is always bypassed here.
	if err := handler.Init(model.ModeClean, cfg.CacheFile, cfg.LockFile, cfg.PIDFile, true, cleanForceStart); err != nil {
		return err
	}

	return handler.Clean()
}
