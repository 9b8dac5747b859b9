package dirent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatshell/internal/dirent"
)

func TestToShortName_PadsAndUppercases(t *testing.T) {
	name, err := dirent.ToShortName("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "HELLO   TXT", string(name[:]))
}

func TestToShortName_NoExtension(t *testing.T) {
	name, err := dirent.ToShortName("readme")
	require.NoError(t, err)
	assert.Equal(t, "README     ", string(name[:]))
}

func TestToShortName_DotAndDotDot(t *testing.T) {
	dot, err := dirent.ToShortName(".")
	require.NoError(t, err)
	assert.Equal(t, ".          ", string(dot[:]))

	dotdot, err := dirent.ToShortName("..")
	require.NoError(t, err)
	assert.Equal(t, "..         ", string(dotdot[:]))
}

func TestToShortName_BaseTooLong(t *testing.T) {
	_, err := dirent.ToShortName("WAYTOOLONG.TXT")
	assert.Error(t, err)
}

func TestToShortName_ExtensionTooLong(t *testing.T) {
	_, err := dirent.ToShortName("A.TOOLONG")
	assert.Error(t, err)
}

func TestToShortName_MultipleDots(t *testing.T) {
	_, err := dirent.ToShortName("A.B.C")
	assert.Error(t, err)
}

func TestEntry_RoundTrip(t *testing.T) {
	name, err := dirent.ToShortName("A.TXT")
	require.NoError(t, err)

	entry := dirent.NewEntry(name, dirent.AttrArchive, 5, 1234)
	assert.Equal(t, "A.TXT", entry.TrimmedName())
	assert.EqualValues(t, 5, entry.FirstCluster())
	assert.EqualValues(t, 1234, entry.FileSize())
	assert.False(t, entry.IsDirectory())

	decoded, err := dirent.FromBytes(entry.Bytes())
	require.NoError(t, err)
	assert.Equal(t, entry.RawName(), decoded.RawName())
}

func TestEntry_MarkDeletedPreservesRestOfRecord(t *testing.T) {
	name, err := dirent.ToShortName("A.TXT")
	require.NoError(t, err)
	entry := dirent.NewEntry(name, dirent.AttrArchive, 5, 1234)

	entry.MarkDeleted()

	assert.True(t, entry.IsDeleted())
	assert.EqualValues(t, 5, entry.FirstCluster())
	assert.EqualValues(t, 1234, entry.FileSize())
}

func TestEntry_FirstClusterSplitAcrossHighLow(t *testing.T) {
	name, err := dirent.ToShortName("BIG")
	require.NoError(t, err)
	entry := dirent.NewEntry(name, 0, 0x00020003, 0)
	assert.EqualValues(t, 0x00020003, entry.FirstCluster())
}
