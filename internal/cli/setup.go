package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/AbazaSeif/cloudsync/internal/auth"
	"github.com/AbazaSeif/cloudsync/internal/connector/drive"
	"github.com/AbazaSeif/cloudsync/internal/connector/local"
	"github.com/AbazaSeif/cloudsync/internal/crypt"
	"github.com/AbazaSeif/cloudsync/internal/fsync"
	"github.com/AbazaSeif/cloudsync/internal/fsync/filter"
)

// newMatcher combines the config file's pattern lists with the command line
// ones; flags extend, not replace, the configured lists.
func newMatcher(includes, excludes []string) (*filter.Matcher, error) {
	return filter.New(
		append(append([]string{}, cfg.Include...), includes...),
		append(append([]string{}, cfg.Exclude...), excludes...),
	)
}

// buildHandler assembles the collaborators behind the sync handler from the
// loaded configuration.
func buildHandler(ctx context.Context) (*fsync.Handler, error) {
	if cfg.LocalRoot == "" {
		return nil, fmt.Errorf("localRoot is not configured")
	}

	fs := afero.NewOsFs()

	var cr *crypt.Crypt
	if cfg.Passphrase != "" {
		var err error
		cr, err = crypt.New(cfg.Passphrase)
		if err != nil {
			return nil, err
		}
	}

	localConn, err := local.New(fs, cfg.LocalRoot)
	if err != nil {
		return nil, err
	}

	svc, err := auth.Service(ctx, cfg.ClientID, cfg.ClientSecret, cfg.Profile)
	if err != nil {
		return nil, err
	}
	remotePath := strings.ReplaceAll(cfg.RemotePath, "{name}", cfg.Name)
	remoteConn, err := drive.New(svc, remotePath)
	if err != nil {
		return nil, err
	}

	followLinks, err := cfg.FollowLinksPolicy()
	if err != nil {
		return nil, err
	}
	permissions, err := cfg.PermissionsPolicy()
	if err != nil {
		return nil, err
	}
	fileErrors, err := cfg.FileErrorPolicy()
	if err != nil {
		return nil, err
	}
	existing, err := cfg.ExistingPolicy()
	if err != nil {
		return nil, err
	}

	return fsync.New(fsync.Options{
		Name:        cfg.Name,
		Local:       localConn,
		Remote:      remoteConn,
		Crypt:       cr,
		FS:          fs,
		Existing:    existing,
		FollowLinks: followLinks,
		Permissions: permissions,
		FileErrors:  fileErrors,
	}), nil
}
