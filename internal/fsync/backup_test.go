package fsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbazaSeif/cloudsync/internal/fsync/filter"
	"github.com/AbazaSeif/cloudsync/internal/model"
)

func initForBackup(t *testing.T, h *Handler) {
	t.Helper()
	require.NoError(t, h.Init(model.ModeBackup, testCachePath, testLockPath, testPIDPath, true, false))
}

func TestBackupReconciliation(t *testing.T) {
	// Local has a (unchanged) and b (new); remote has a and c (stale).
	local := newFakeLocal(map[string]*localEntry{
		"/a": localFile(10, 1000),
		"/b": localFile(20, 1000),
	})
	remote := newFakeRemote(map[string][]*model.Item{
		"/": {
			remoteFile("id-a", "a", 10, 1000, 900),
			remoteFile("id-c", "c", 5, 1000, 900),
		},
	})
	h, fs := newTestHandler(local, remote)
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, status.Created)
	assert.Equal(t, 0, status.Updated)
	assert.Equal(t, 1, status.Removed)
	assert.Equal(t, 1, status.Skipped)
	assert.Equal(t, 2, status.Total())

	assert.Equal(t, []string{"upload /b", "remove id-c"}, remote.calls)
	assert.Equal(t, 1, remote.cleaned)

	assert.NotNil(t, h.Root().ChildByName("a"))
	assert.NotNil(t, h.Root().ChildByName("b"))
	assert.Nil(t, h.Root().ChildByName("c"))

	// The run mutated remote state, so the lock cycled and the cache was
	// rewritten.
	assert.False(t, exists(t, fs, testLockPath))
	assert.True(t, exists(t, fs, "/state/test.cache"))
}

func TestBackupIsIdempotent(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/a": localFile(10, 1000),
		"/b": localFile(20, 1000),
	})
	h, _ := newTestHandler(local, newFakeRemote(nil))
	initForBackup(t, h)

	first, err := h.Backup(false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	remote := h.remote.(*fakeRemote)
	callsAfterFirst := len(remote.calls)
	cleanedAfterFirst := remote.cleaned

	second, err := h.Backup(false, nil)
	require.NoError(t, err)
	assert.Equal(t, Status{Skipped: 2}, second)

	// Nothing changed, so no remote traffic and no history compaction.
	assert.Len(t, remote.calls, callsAfterFirst)
	assert.Equal(t, cleanedAfterFirst, remote.cleaned)
}

func TestBackupMetadataUpdate(t *testing.T) {
	tests := []struct {
		name     string
		entry    *localEntry
		wantCall string
	}{
		{
			name:     "content change",
			entry:    &localEntry{typ: model.TypeFile, size: 11, mod: 2000, mode: 0o644},
			wantCall: "update+content /a",
		},
		{
			name:     "attribute-only change",
			entry:    &localEntry{typ: model.TypeFile, size: 10, mod: 1000, mode: 0o600},
			wantCall: "update /a",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			local := newFakeLocal(map[string]*localEntry{"/a": tc.entry})
			remote := newFakeRemote(map[string][]*model.Item{
				"/": {remoteFile("id-a", "a", 10, 1000, 900)},
			})
			h, _ := newTestHandler(local, remote)
			initForBackup(t, h)

			status, err := h.Backup(false, nil)
			require.NoError(t, err)
			assert.Equal(t, Status{Updated: 1}, status)
			assert.Equal(t, []string{tc.wantCall}, remote.calls)

			// The tree now mirrors the local entry, so a repeat run skips.
			again, err := h.Backup(false, nil)
			require.NoError(t, err)
			assert.Equal(t, Status{Skipped: 1}, again)
		})
	}
}

func TestBackupTypeChange(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/x": localFolder(1000),
	})
	remote := newFakeRemote(map[string][]*model.Item{
		"/": {remoteFile("id-x", "x", 10, 1000, 900)},
	})
	h, _ := newTestHandler(local, remote)
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, status.Removed)
	assert.Equal(t, 1, status.Created)
	assert.Equal(t, []string{"remove id-x", "upload /x"}, remote.calls)
	assert.True(t, h.Root().ChildByName("x").IsType(model.TypeFolder))
}

func TestBackupRecursesIntoFolders(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/dir":         localFolder(1000),
		"/dir/deep":    localFolder(1000),
		"/dir/deep/f1": localFile(1, 1000),
		"/dir/f2":      localFile(2, 1000),
	})
	h, _ := newTestHandler(local, newFakeRemote(nil))
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Created)

	remote := h.remote.(*fakeRemote)
	assert.Equal(t, []string{
		"upload /dir",
		"upload /dir/deep",
		"upload /dir/deep/f1",
		"upload /dir/f2",
	}, remote.calls)
}

func TestBackupDryRun(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/a": localFile(10, 1000),
	})
	remote := newFakeRemote(map[string][]*model.Item{
		"/": {remoteFile("id-c", "c", 5, 1000, 900)},
	})
	h, fs := newTestHandler(local, remote)
	initForBackup(t, h)

	status, err := h.Backup(true, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, status.Created)
	assert.Equal(t, 1, status.Removed)
	assert.Empty(t, remote.calls)
	assert.Equal(t, 0, remote.cleaned)
	assert.False(t, exists(t, fs, testLockPath))
}

func TestBackupFilterShieldsExcludedSubtrees(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/data":          localFolder(1000),
		"/data/keep.txt": localFile(1, 1000),
		"/data/tmp":      localFolder(1000),
		"/data/tmp/x":    localFile(1, 1000),
	})
	remote := newFakeRemote(map[string][]*model.Item{
		"/":         {remoteFolder("id-data", "data", 1000, 900)},
		"/data":     {remoteFolder("id-tmp", "tmp", 1000, 900)},
		"/data/tmp": {remoteFile("id-x", "x", 1, 1000, 900)},
	})
	h, _ := newTestHandler(local, remote)
	initForBackup(t, h)

	matcher, err := filter.New(nil, []string{`/data/tmp(/.*)?`})
	require.NoError(t, err)

	status, err := h.Backup(false, matcher)
	require.NoError(t, err)

	// keep.txt is new; the excluded tmp subtree is neither descended into
	// nor treated as a remote-only leftover.
	assert.Equal(t, 1, status.Created)
	assert.Equal(t, 0, status.Removed)
	assert.Equal(t, []string{"upload /data/keep.txt"}, remote.calls)

	tmp := h.Root().ChildByName("data").ChildByName("tmp")
	require.NotNil(t, tmp)
	assert.NotNil(t, tmp.ChildByName("x"))
}

func TestBackupSkipPolicyOnFileError(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/a": localFile(1, 1000),
		"/b": {typ: model.TypeFile, size: 1, mod: 1000, mode: 0o644, fail: true},
		"/c": localFile(1, 1000),
	})
	h, _ := newTestHandler(local, newFakeRemote(nil))
	h.fileErrors = model.FileErrorMessage
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, status.Created)
	assert.Equal(t, 1, status.Skipped)

	remote := h.remote.(*fakeRemote)
	assert.Equal(t, []string{"upload /a", "upload /c"}, remote.calls)
}

func TestBackupAbortPolicyOnFileError(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/a": localFile(1, 1000),
		"/b": {typ: model.TypeFile, size: 1, mod: 1000, mode: 0o644, fail: true},
		"/c": localFile(1, 1000),
	})
	h, fs := newTestHandler(local, newFakeRemote(nil))
	h.fileErrors = model.FileErrorAbort
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.Error(t, err)

	var abort *AbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "/b", abort.Path)

	// The mutation applied before the failure stays in place, and the lock
	// file is left behind so the next run distrusts the cache.
	assert.Equal(t, 1, status.Created)
	assert.Equal(t, 1, status.Skipped)
	remote := h.remote.(*fakeRemote)
	assert.Equal(t, []string{"upload /a"}, remote.calls)
	assert.True(t, exists(t, fs, testLockPath))
}

func TestBackupAbortInNestedFolderPropagates(t *testing.T) {
	local := newFakeLocal(map[string]*localEntry{
		"/dir":     localFolder(1000),
		"/dir/bad": {typ: model.TypeFile, size: 1, mod: 1000, mode: 0o644, fail: true},
	})
	h, _ := newTestHandler(local, newFakeRemote(nil))
	h.fileErrors = model.FileErrorAbort
	initForBackup(t, h)

	status, err := h.Backup(false, nil)
	require.Error(t, err)

	var abort *AbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "/dir/bad", abort.Path)

	// Counted once where it happened, not again while unwinding.
	assert.Equal(t, 1, status.Skipped)
	assert.Equal(t, 1, status.Created)
}

func TestBackupBlockedByQuarantine(t *testing.T) {
	remote := newFakeRemote(map[string][]*model.Item{
		"/": {
			remoteFile("a", "x.txt", 10, 1000, 100),
			remoteFile("b", "x.txt", 20, 1000, 200),
		},
	})
	h, _ := newTestHandler(newFakeLocal(nil), remote)
	initForBackup(t, h)

	_, err := h.Backup(false, nil)
	require.Error(t, err)

	var quarantine *QuarantineError
	require.True(t, errors.As(err, &quarantine))
	assert.Contains(t, err.Error(), "found 1 duplicate item")
	assert.Contains(t, err.Error(), "try to run the 'clean' command")
	assert.Empty(t, remote.calls)
}
