// Package volume parses and validates the FAT32 BIOS Parameter Block and
// derives the byte-level geometry the rest of the engine relies on.
package volume

import (
	"encoding/binary"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/dargueta/fatshell/ferrors"
)

// BootSectorSize is the fixed size, in bytes, of the FAT32 boot sector.
const BootSectorSize = 512

// Byte offsets of the BPB fields this engine cares about. The loader reads
// each field individually at its documented offset rather than relying on
// the layout of a packed struct, per the design guidance to never trust
// structural layout for on-disk formats.
const (
	offBytesPerSector    = 11
	offSectorsPerCluster = 13
	offReservedSectors   = 14
	offNumFATs           = 16
	offTotalSectors16    = 19
	offFATSize16         = 22
	offTotalSectors32    = 32
	offFATSize32         = 36
	offRootCluster       = 44
	offSignature         = 510
)

const bootSectorSignature = 0xAA55

// Descriptor is the immutable, derived volume geometry computed once at
// session start.
type Descriptor struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	FATSizeSectors    uint32
	TotalSectors      uint32
	RootCluster       uint32

	BytesPerCluster   uint32
	FATRegionOffset   int64
	FATSizeBytes      int64
	DataRegionOffset  int64
	TotalDataSectors  uint32
	TotalClusters     uint32
	FATEntryCount     uint32
}

// ClusterOffset returns the byte offset of cluster k (k >= 2) in the data
// region: D + (k-2)*BytesPerSector*SectorsPerCluster.
func (d *Descriptor) ClusterOffset(cluster uint32) int64 {
	return d.DataRegionOffset + int64(cluster-2)*int64(d.BytesPerCluster)
}

// Load parses the first BootSectorSize bytes of an image into a validated
// Descriptor. It signals ferrors.ErrInvalidImage, aggregating every
// violated precondition via go-multierror so a single malformed sector
// reports all of its problems instead of just the first one caught.
func Load(sector []byte) (*Descriptor, error) {
	if len(sector) < BootSectorSize {
		return nil, ferrors.WithMessage(ferrors.ErrInvalidImage,
			fmt.Sprintf("boot sector is only %d bytes, need %d", len(sector), BootSectorSize))
	}

	var problems *multierror.Error

	signature := binary.LittleEndian.Uint16(sector[offSignature : offSignature+2])
	if signature != bootSectorSignature {
		problems = multierror.Append(problems, fmt.Errorf(
			"missing 0xAA55 boot sector signature, found 0x%04X", signature))
	}

	bytesPerSector := binary.LittleEndian.Uint16(sector[offBytesPerSector : offBytesPerSector+2])
	switch bytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		problems = multierror.Append(problems, fmt.Errorf(
			"bytes-per-sector must be 512, 1024, 2048, or 4096, got %d", bytesPerSector))
	}

	sectorsPerCluster := sector[offSectorsPerCluster]
	if !isPowerOfTwoInRange(sectorsPerCluster, 1, 128) {
		problems = multierror.Append(problems, fmt.Errorf(
			"sectors-per-cluster must be a power of two in [1, 128], got %d", sectorsPerCluster))
	}

	totalSectors16 := binary.LittleEndian.Uint16(sector[offTotalSectors16 : offTotalSectors16+2])
	totalSectors32 := binary.LittleEndian.Uint32(sector[offTotalSectors32 : offTotalSectors32+4])
	totalSectors := uint32(totalSectors16)
	if totalSectors == 0 {
		totalSectors = totalSectors32
	}
	if totalSectors == 0 {
		problems = multierror.Append(problems, fmt.Errorf("total-sectors is zero"))
	}

	numFATs := sector[offNumFATs]
	if numFATs == 0 {
		problems = multierror.Append(problems, fmt.Errorf("number-of-FATs must be at least 1, got 0"))
	}

	rootCluster := binary.LittleEndian.Uint32(sector[offRootCluster : offRootCluster+4])
	if rootCluster < 2 {
		problems = multierror.Append(problems, fmt.Errorf("root cluster must be >= 2, got %d", rootCluster))
	}

	if problems.ErrorOrNil() != nil {
		return nil, ferrors.Wrap(ferrors.ErrInvalidImage, problems)
	}

	reservedSectors := binary.LittleEndian.Uint16(sector[offReservedSectors : offReservedSectors+2])
	fatSize16 := binary.LittleEndian.Uint16(sector[offFATSize16 : offFATSize16+2])
	fatSize32 := binary.LittleEndian.Uint32(sector[offFATSize32 : offFATSize32+4])

	fatSizeSectors := uint32(fatSize16)
	if fatSizeSectors == 0 {
		fatSizeSectors = fatSize32
	}

	bytesPerCluster := uint32(bytesPerSector) * uint32(sectorsPerCluster)
	fatRegionOffset := int64(reservedSectors) * int64(bytesPerSector)
	fatSizeBytes := int64(fatSizeSectors) * int64(bytesPerSector)
	dataRegionOffset := int64(uint32(reservedSectors)+uint32(numFATs)*fatSizeSectors) * int64(bytesPerSector)

	dataBytes := int64(totalSectors)*int64(bytesPerSector) - dataRegionOffset
	totalClusters := uint32(0)
	if dataBytes > 0 {
		totalClusters = uint32(dataBytes / int64(bytesPerCluster))
	}

	desc := &Descriptor{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		FATSizeSectors:    fatSizeSectors,
		TotalSectors:      totalSectors,
		RootCluster:       rootCluster,
		BytesPerCluster:   bytesPerCluster,
		FATRegionOffset:   fatRegionOffset,
		FATSizeBytes:      fatSizeBytes,
		DataRegionOffset:  dataRegionOffset,
		TotalDataSectors:  uint32(dataBytes / int64(bytesPerSector)),
		TotalClusters:     totalClusters,
		FATEntryCount:     uint32(fatSizeBytes / 4),
	}

	return desc, nil
}

func isPowerOfTwoInRange(v uint8, lo, hi int) bool {
	n := int(v)
	if n < lo || n > hi {
		return false
	}
	return n&(n-1) == 0
}
