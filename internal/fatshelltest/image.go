// Package fatshelltest builds small in-memory FAT32 images for exercising
// the volume engine without a real disk file.
package fatshelltest

import (
	"encoding/binary"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/fatshell/internal/blockio"
	"github.com/dargueta/fatshell/internal/volume"
)

// Builder describes the geometry of a freshly formatted test image. Zero
// values are filled in with small, fast defaults by New.
type Builder struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	NumFATs           uint8
	FATSizeSectors    uint32
	TotalClusters     uint32
}

// New returns a Builder with defaults suitable for most tests: 512-byte
// sectors, one sector per cluster, two mirrored FATs, and 32 data clusters.
func New() Builder {
	return Builder{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		NumFATs:           2,
		FATSizeSectors:    1,
		TotalClusters:     32,
	}
}

// Image is a freshly formatted, ready-to-mount test image: an Image, its
// Descriptor, and the backing slice for out-of-band inspection.
type Image struct {
	Img  *blockio.Image
	Desc *volume.Descriptor
	Raw  []byte
}

// Build formats a boot sector matching the Builder's geometry, zeroes the
// FAT and data regions, marks the root directory cluster (2) end-of-chain
// in every FAT copy, and returns the assembled Image.
func (b Builder) Build(t *testing.T) *Image {
	t.Helper()

	reservedSectors := uint16(1)
	totalSectors := uint32(reservedSectors) + uint32(b.NumFATs)*b.FATSizeSectors +
		b.TotalClusters*uint32(b.SectorsPerCluster)

	raw := make([]byte, uint32(totalSectors)*uint32(b.BytesPerSector))

	header := make([]byte, volume.BootSectorSize)
	binary.LittleEndian.PutUint16(header[11:13], b.BytesPerSector)
	header[13] = b.SectorsPerCluster
	binary.LittleEndian.PutUint16(header[14:16], reservedSectors)
	header[16] = b.NumFATs
	binary.LittleEndian.PutUint16(header[19:21], 0) // TotalSectors16 unused on FAT32
	binary.LittleEndian.PutUint16(header[22:24], 0) // FATSize16 unused on FAT32
	binary.LittleEndian.PutUint32(header[32:36], totalSectors)
	binary.LittleEndian.PutUint32(header[36:40], b.FATSizeSectors)
	binary.LittleEndian.PutUint32(header[44:48], 2) // root cluster
	binary.LittleEndian.PutUint16(header[510:512], 0xAA55)

	// Fixed-size copy into the backing slice: bytewriter.New never grows its
	// target, so a header larger than BootSectorSize would fail loudly here
	// instead of silently overrunning the image.
	w := bytewriter.New(raw[:volume.BootSectorSize])
	n, err := w.Write(header)
	require.NoError(t, err)
	require.Equal(t, volume.BootSectorSize, n)

	desc, err := volume.Load(raw[:volume.BootSectorSize])
	require.NoError(t, err)

	img := blockio.New(bytesextra.NewReadWriteSeeker(raw), int64(len(raw)))

	// Mark the root directory cluster EOC in every FAT copy.
	markEOC(t, img, desc, 2)

	return &Image{Img: img, Desc: desc, Raw: raw}
}

func markEOC(t *testing.T, img *blockio.Image, desc *volume.Descriptor, cluster uint32) {
	t.Helper()

	entry := make([]byte, 4)
	binary.LittleEndian.PutUint32(entry, 0x0FFFFFFF)

	for fatIndex := uint8(0); fatIndex < desc.NumFATs; fatIndex++ {
		offset := desc.FATRegionOffset + int64(fatIndex)*desc.FATSizeBytes + int64(cluster)*4
		require.NoError(t, img.WriteAt(offset, entry))
	}
}
