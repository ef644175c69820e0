// Package cli wires the cobra command surface onto the sync handler.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AbazaSeif/cloudsync/internal/config"
	"github.com/AbazaSeif/cloudsync/internal/logging"
	"github.com/AbazaSeif/cloudsync/pkg/version"
)

var (
	flagConfig      string
	flagName        string
	flagLogLevel    string
	flagLogFile     string
	flagFollowLinks string
	flagPermissions string
	flagFileError   string
	flagExisting    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cloudsync",
	Short: "Encrypted mirror of a local file tree on a remote storage service",
	Long: `cloudsync maintains an encrypted, drift-tolerant mirror of a local
directory on a remote storage service, with a local structure cache to avoid
full remote listings on every run.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagName != "" {
			cfg.Name = flagName
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagLogFile != "" {
			cfg.LogFile = flagLogFile
		}
		if flagFollowLinks != "" {
			cfg.FollowLinks = flagFollowLinks
		}
		if flagPermissions != "" {
			cfg.Permissions = flagPermissions
		}
		if flagFileError != "" {
			cfg.FileError = flagFileError
		}
		if flagExisting != "" {
			cfg.Existing = flagExisting
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return logging.Setup(cfg.LogLevel, cfg.LogFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagName, "name", "n", "", "Backup set name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Duplicate log output into this file")
	rootCmd.PersistentFlags().StringVar(&flagFollowLinks, "follow-links", "", "Link policy: none, external or all (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagPermissions, "permissions", "", "Restore permission policy: ignore, set or try (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagFileError, "file-error", "", "Local read failure policy: message or exception (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagExisting, "existing", "", "Restore collision policy: stop, update, skip or rename (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and maps errors onto exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(exitCode(err))
	}
}
