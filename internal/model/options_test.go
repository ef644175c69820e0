package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsPID(t *testing.T) {
	assert.True(t, ModeBackup.NeedsPID())
	assert.True(t, ModeClean.NeedsPID())
	assert.False(t, ModeRestore.NeedsPID())
	assert.False(t, ModeList.NeedsPID())
}

func TestParsePolicies(t *testing.T) {
	follow, err := ParseFollowLink("")
	require.NoError(t, err)
	assert.Equal(t, FollowNone, follow)

	follow, err = ParseFollowLink("external")
	require.NoError(t, err)
	assert.Equal(t, FollowExternal, follow)

	_, err = ParseFollowLink("sometimes")
	assert.Error(t, err)

	perm, err := ParsePermission("try")
	require.NoError(t, err)
	assert.Equal(t, PermTry, perm)

	_, err = ParsePermission("maybe")
	assert.Error(t, err)

	fe, err := ParseFileError("exception")
	require.NoError(t, err)
	assert.Equal(t, FileErrorAbort, fe)

	fe, err = ParseFileError("")
	require.NoError(t, err)
	assert.Equal(t, FileErrorMessage, fe)

	ex, err := ParseExisting("rename")
	require.NoError(t, err)
	assert.Equal(t, ExistingRename, ex)

	_, err = ParseExisting("overwrite")
	assert.Error(t, err)
}

func TestItemTypeTags(t *testing.T) {
	for _, typ := range []ItemType{TypeFile, TypeFolder, TypeLink} {
		parsed, err := ParseItemType(typ.Tag())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := ParseItemType("Q")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "file", TypeFile.Label(1))
	assert.Equal(t, "files", TypeFile.Label(2))
	assert.Equal(t, "folders", TypeFolder.Label(0))
}
