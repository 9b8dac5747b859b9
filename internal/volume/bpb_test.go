package volume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatshell/internal/fatshelltest"
	"github.com/dargueta/fatshell/internal/volume"
)

func TestLoad_ValidImage(t *testing.T) {
	img := fatshelltest.New().Build(t)

	assert.EqualValues(t, 512, img.Desc.BytesPerSector)
	assert.EqualValues(t, 1, img.Desc.SectorsPerCluster)
	assert.EqualValues(t, 2, img.Desc.NumFATs)
	assert.EqualValues(t, 2, img.Desc.RootCluster)
	assert.EqualValues(t, 512, img.Desc.BytesPerCluster)
	assert.EqualValues(t, 512, img.Desc.FATRegionOffset)
	assert.EqualValues(t, 512+2*512, img.Desc.DataRegionOffset)
}

func TestLoad_ClusterOffset(t *testing.T) {
	img := fatshelltest.New().Build(t)

	assert.Equal(t, img.Desc.DataRegionOffset, img.Desc.ClusterOffset(2))
	assert.Equal(t, img.Desc.DataRegionOffset+int64(img.Desc.BytesPerCluster), img.Desc.ClusterOffset(3))
}

func TestLoad_BadSignature(t *testing.T) {
	img := fatshelltest.New().Build(t)
	raw := img.Raw
	raw[510] = 0
	raw[511] = 0

	_, err := volume.Load(raw[:volume.BootSectorSize])
	require.Error(t, err)
}

func TestLoad_BadBytesPerSector(t *testing.T) {
	img := fatshelltest.New().Build(t)
	raw := img.Raw
	raw[11] = 777 & 0xFF
	raw[12] = 777 >> 8

	_, err := volume.Load(raw[:volume.BootSectorSize])
	require.Error(t, err)
}

func TestLoad_TooShort(t *testing.T) {
	_, err := volume.Load(make([]byte, 10))
	require.Error(t, err)
}
