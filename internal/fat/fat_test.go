package fat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatshell/internal/fat"
	"github.com/dargueta/fatshell/internal/fatshelltest"
)

func newAccessor(t *testing.T) (*fat.Accessor, *fatshelltest.Image) {
	t.Helper()
	img := fatshelltest.New().Build(t)
	acc, err := fat.New(img.Img, img.Desc)
	require.NoError(t, err)
	return acc, img
}

func TestReadEntry_RootIsEOC(t *testing.T) {
	acc, _ := newAccessor(t)

	value, err := acc.ReadEntry(2)
	require.NoError(t, err)
	assert.True(t, fat.IsEndOfChain(value))
}

func TestFindFreeCluster_SkipsAllocated(t *testing.T) {
	acc, _ := newAccessor(t)

	first, err := acc.FindFreeCluster()
	require.NoError(t, err)
	assert.EqualValues(t, 3, first)

	require.NoError(t, acc.MarkEOC(first))

	second, err := acc.FindFreeCluster()
	require.NoError(t, err)
	assert.EqualValues(t, 4, second)
}

func TestWriteEntry_PreservesReservedBits(t *testing.T) {
	acc, img := newAccessor(t)

	require.NoError(t, acc.WriteEntry(3, 0xF0000005))

	value, err := acc.ReadEntry(3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, value)

	// The reserved top bits stay intact on disk even though ReadEntry masks
	// them off.
	raw := make([]byte, 4)
	copy(raw, img.Raw[img.Desc.FATRegionOffset+3*4:])
	assert.EqualValues(t, 0xF0000005, leUint32(raw))
}

func TestWriteEntry_MirrorsAcrossAllFATs(t *testing.T) {
	acc, img := newAccessor(t)

	require.NoError(t, acc.WriteEntry(5, 9))

	for fatIndex := uint8(0); fatIndex < img.Desc.NumFATs; fatIndex++ {
		offset := img.Desc.FATRegionOffset + int64(fatIndex)*img.Desc.FATSizeBytes + 5*4
		assert.EqualValues(t, 9, leUint32(img.Raw[offset:offset+4]))
	}
}

func TestAllocate_MarksEOCAndConsumesFreeHint(t *testing.T) {
	acc, _ := newAccessor(t)

	c, err := acc.Allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 3, c)

	value, err := acc.ReadEntry(c)
	require.NoError(t, err)
	assert.True(t, fat.IsEndOfChain(value))

	next, err := acc.FindFreeCluster()
	require.NoError(t, err)
	assert.NotEqual(t, c, next)
}

func TestFindFreeCluster_NoSpace(t *testing.T) {
	builder := fatshelltest.New()
	builder.TotalClusters = 1 // only cluster 2 exists, and it's the root
	img := builder.Build(t)
	acc, err := fat.New(img.Img, img.Desc)
	require.NoError(t, err)

	_, err = acc.FindFreeCluster()
	assert.Error(t, err)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
