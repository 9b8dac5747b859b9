// Package fat implements the FAT accessor: reading and writing 32-bit FAT
// entries with mirrored-copy consistency, and allocating and freeing
// clusters.
package fat

import (
	"encoding/binary"

	"github.com/boljen/go-bitmap"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/blockio"
	"github.com/dargueta/fatshell/internal/volume"
)

// EntryMask isolates the 28 meaningful low bits of a FAT32 entry; the top
// four bits are reserved and must be preserved across writes.
const EntryMask = 0x0FFFFFFF

// EOCMarker is the value write_entry(k, EOCMarker) uses to terminate a
// chain.
const EOCMarker = 0x0FFFFFFF

const freeEntry = 0x00000000

// IsEndOfChain reports whether a raw (already-masked) FAT entry value marks
// the end of a cluster chain.
func IsEndOfChain(value uint32) bool {
	return value >= 0x0FFFFFF8
}

// IsBadCluster reports whether a raw FAT entry value marks a bad cluster.
func IsBadCluster(value uint32) bool {
	return value == 0x0FFFFFF7
}

// Accessor reads and writes FAT entries across all mirrored copies and
// tracks free clusters.
type Accessor struct {
	img  *blockio.Image
	desc *volume.Descriptor

	// freeHint caches which clusters are known to be free, indexed by
	// (cluster - 2). It is built by one full FAT scan at construction and
	// kept in sync by every allocate/free so find_free_cluster does not
	// need to rescan the FAT from cluster 2 on every call.
	freeHint bitmap.Bitmap

	// clusterLimit is the exclusive upper bound (2 + TotalClusters) of
	// valid cluster numbers. The on-disk FAT is sector-aligned and
	// frequently has room for more entries than the volume actually has
	// data clusters for; scanning past this bound would treat that padding
	// as free space that has no backing data-region bytes.
	clusterLimit uint32
}

// New builds an Accessor over img/desc, scanning FAT #0 once to seed the
// free-cluster hint bitmap.
func New(img *blockio.Image, desc *volume.Descriptor) (*Accessor, error) {
	clusterLimit := desc.TotalClusters + 2
	acc := &Accessor{
		img:          img,
		desc:         desc,
		freeHint:     bitmap.New(int(desc.FATEntryCount)),
		clusterLimit: clusterLimit,
	}

	for cluster := uint32(2); cluster < clusterLimit; cluster++ {
		value, err := acc.readEntryFromFAT(0, cluster)
		if err != nil {
			return nil, err
		}
		acc.freeHint.Set(int(cluster), value != freeEntry)
	}

	return acc, nil
}

func (a *Accessor) entryOffset(fatIndex uint8, cluster uint32) int64 {
	return a.desc.FATRegionOffset + int64(fatIndex)*a.desc.FATSizeBytes + int64(cluster)*4
}

func (a *Accessor) readEntryFromFAT(fatIndex uint8, cluster uint32) (uint32, error) {
	raw, err := a.img.ReadAt(a.entryOffset(fatIndex, cluster), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// ReadEntry returns the masked 28-bit value of FAT entry k, read from the
// first FAT copy.
func (a *Accessor) ReadEntry(cluster uint32) (uint32, error) {
	raw, err := a.readEntryFromFAT(0, cluster)
	if err != nil {
		return 0, err
	}
	return raw & EntryMask, nil
}

// WriteEntry writes v into FAT #0 and every mirror FAT, read-modify-writing
// each copy so the reserved top four bits of the existing entry survive.
// Mirror failures are aggregated with go-multierror: if any copy fails to
// write, the mutation as a whole is not considered committed and the
// combined error is returned.
func (a *Accessor) WriteEntry(cluster uint32, value uint32) error {
	var errs *multierror.Error

	for fatIndex := uint8(0); fatIndex < a.desc.NumFATs; fatIndex++ {
		existing, err := a.readEntryFromFAT(fatIndex, cluster)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		merged := (existing &^ EntryMask) | (value & EntryMask)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, merged)

		if err := a.img.WriteAt(a.entryOffset(fatIndex, cluster), buf); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return ferrors.Wrap(ferrors.ErrCorruptChain, err)
	}

	a.freeHint.Set(int(cluster), (value&EntryMask) != freeEntry)
	return nil
}

// FindFreeCluster returns the lowest-indexed free cluster (index >= 2),
// breaking ties by always preferring the lowest index, as required for
// deterministic allocation.
func (a *Accessor) FindFreeCluster() (uint32, error) {
	for cluster := uint32(2); cluster < a.clusterLimit; cluster++ {
		if !a.freeHint.Get(int(cluster)) {
			return cluster, nil
		}
	}
	return 0, ferrors.New(ferrors.ErrNoSpace)
}

// MarkEOC writes the end-of-chain marker into entry k.
func (a *Accessor) MarkEOC(cluster uint32) error {
	return a.WriteEntry(cluster, EOCMarker)
}

// MarkFree writes the free marker (0) into entry k.
func (a *Accessor) MarkFree(cluster uint32) error {
	return a.WriteEntry(cluster, freeEntry)
}

// Allocate finds a free cluster, marks it end-of-chain, and returns its
// index. This is the building block both chain extension and new
// directory/file creation use to obtain a fresh cluster.
func (a *Accessor) Allocate() (uint32, error) {
	cluster, err := a.FindFreeCluster()
	if err != nil {
		return 0, err
	}
	if err := a.MarkEOC(cluster); err != nil {
		return 0, err
	}
	return cluster, nil
}
