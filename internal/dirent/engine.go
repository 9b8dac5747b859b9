package dirent

import (
	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/chain"
	"github.com/dargueta/fatshell/internal/fat"
	"github.com/dargueta/fatshell/internal/blockio"
	"github.com/dargueta/fatshell/internal/volume"
)

// Slot identifies one directory entry's location on disk: the cluster it
// lives in and its 32-byte-aligned index within that cluster.
type Slot struct {
	Cluster uint32
	Index   int
	Entry   Entry
}

// Engine implements the directory engine operations: traversing, locating,
// allocating, and mutating 8.3 short-name directory entries.
type Engine struct {
	img    *blockio.Image
	desc   *volume.Descriptor
	fat    *fat.Accessor
	walker *chain.Walker
}

// New builds a directory Engine over the given image/descriptor/FAT
// accessor.
func New(img *blockio.Image, desc *volume.Descriptor, accessor *fat.Accessor) *Engine {
	return &Engine{img: img, desc: desc, fat: accessor, walker: chain.New(accessor)}
}

// Canonicalize resolves the root-directory sentinel: cluster 0 is accepted
// wherever a current-directory cluster is read and always resolves to the
// volume's true root cluster.
func (e *Engine) Canonicalize(cluster uint32) uint32 {
	if cluster == 0 {
		return e.desc.RootCluster
	}
	return cluster
}

func (e *Engine) readCluster(cluster uint32) ([]byte, error) {
	return e.img.ReadAt(e.desc.ClusterOffset(cluster), int(e.desc.BytesPerCluster))
}

func (e *Engine) writeSlot(slot Slot) error {
	offset := e.desc.ClusterOffset(slot.Cluster) + int64(slot.Index)*Size
	return e.img.WriteAt(offset, slot.Entry.Bytes())
}

// WriteSlot rewrites an already-located slot's entry back to disk. Callers
// that locate a slot via Lookup, mutate fields on slot.Entry (such as
// FirstCluster or FileSize during a write), and need to persist the change
// use this instead of one of the named mutating operations above.
func (e *Engine) WriteSlot(slot Slot) error {
	return e.writeSlot(slot)
}

func (e *Engine) entriesPerCluster() int {
	return int(e.desc.BytesPerCluster) / Size
}

// Enumerate returns every live entry in dirStart's chain, in on-disk order,
// skipping deleted slots and long-name components and stopping at the
// first end-of-directory sentinel. The returned slice is a snapshot;
// re-call Enumerate to see subsequent mutations (the directory sequence is
// restartable, not cached).
func (e *Engine) Enumerate(dirStart uint32) ([]Slot, error) {
	dirStart = e.Canonicalize(dirStart)
	clusters, err := e.walker.All(dirStart)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	perCluster := e.entriesPerCluster()

	for _, cluster := range clusters {
		data, err := e.readCluster(cluster)
		if err != nil {
			return nil, err
		}

		for i := 0; i < perCluster; i++ {
			raw := data[i*Size : (i+1)*Size]
			entry, err := FromBytes(raw)
			if err != nil {
				return nil, err
			}

			if entry.IsFree() {
				return slots, nil
			}
			if entry.IsDeleted() || entry.IsLongNameComponent() {
				continue
			}

			slots = append(slots, Slot{Cluster: cluster, Index: i, Entry: entry})
		}
	}

	return slots, nil
}

// Lookup finds the live entry named name in dirStart, returning its slot
// address. name must already be in padded 11-byte short-name form.
func (e *Engine) Lookup(dirStart uint32, name [11]byte) (Slot, error) {
	slots, err := e.Enumerate(dirStart)
	if err != nil {
		return Slot{}, err
	}

	for _, slot := range slots {
		if slot.Entry.RawName() == name {
			return slot, nil
		}
	}
	return Slot{}, ferrors.New(ferrors.ErrNotFound)
}

// AllocateSlot returns the first slot whose first byte is 0xE5 or 0x00,
// extending the chain by one zero-filled cluster if no such slot exists
// before end-of-chain.
func (e *Engine) AllocateSlot(dirStart uint32) (Slot, error) {
	dirStart = e.Canonicalize(dirStart)
	clusters, err := e.walker.All(dirStart)
	if err != nil {
		return Slot{}, err
	}

	perCluster := e.entriesPerCluster()

	for _, cluster := range clusters {
		data, err := e.readCluster(cluster)
		if err != nil {
			return Slot{}, err
		}

		for i := 0; i < perCluster; i++ {
			raw := data[i*Size : (i+1)*Size]
			entry, err := FromBytes(raw)
			if err != nil {
				return Slot{}, err
			}
			if entry.IsFree() || entry.IsDeleted() {
				return Slot{Cluster: cluster, Index: i, Entry: entry}, nil
			}
		}
	}

	tail := clusters[len(clusters)-1]
	newCluster, err := e.walker.Extend(tail)
	if err != nil {
		return Slot{}, err
	}

	zero := make([]byte, e.desc.BytesPerCluster)
	if err := e.img.WriteAt(e.desc.ClusterOffset(newCluster), zero); err != nil {
		return Slot{}, err
	}

	var empty Entry
	return Slot{Cluster: newCluster, Index: 0, Entry: empty}, nil
}

// CreateFile writes a new zero-length, zero-cluster file entry.
// Precondition: lookup(dirStart, name) reports NotFound.
func (e *Engine) CreateFile(dirStart uint32, name [11]byte) (Slot, error) {
	dirStart = e.Canonicalize(dirStart)
	if _, err := e.Lookup(dirStart, name); err == nil {
		return Slot{}, ferrors.New(ferrors.ErrAlreadyExists)
	}

	slot, err := e.AllocateSlot(dirStart)
	if err != nil {
		return Slot{}, err
	}

	slot.Entry = NewEntry(name, AttrArchive, 0, 0)
	if err := e.writeSlot(slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

var dotName = mustShortName(".")
var dotDotName = mustShortName("..")

func mustShortName(name string) [11]byte {
	n, err := ToShortName(name)
	if err != nil {
		panic(err)
	}
	return n
}

// CreateDir allocates a fresh cluster for the new subdirectory, seeds it
// with "." and ".." entries, and links it into the parent. Precondition:
// lookup(dirStart, name) reports NotFound.
func (e *Engine) CreateDir(dirStart uint32, name [11]byte) (Slot, error) {
	dirStart = e.Canonicalize(dirStart)
	if _, err := e.Lookup(dirStart, name); err == nil {
		return Slot{}, ferrors.New(ferrors.ErrAlreadyExists)
	}

	newCluster, err := e.fat.Allocate()
	if err != nil {
		return Slot{}, err
	}

	zero := make([]byte, e.desc.BytesPerCluster)
	if err := e.img.WriteAt(e.desc.ClusterOffset(newCluster), zero); err != nil {
		return Slot{}, err
	}

	parentPointer := dirStart
	if dirStart == e.desc.RootCluster {
		parentPointer = 0
	}

	dotEntry := NewEntry(dotName, AttrDirectory, newCluster, 0)
	dotDotEntry := NewEntry(dotDotName, AttrDirectory, parentPointer, 0)

	base := e.desc.ClusterOffset(newCluster)
	if err := e.img.WriteAt(base, dotEntry.Bytes()); err != nil {
		return Slot{}, err
	}
	if err := e.img.WriteAt(base+Size, dotDotEntry.Bytes()); err != nil {
		return Slot{}, err
	}

	slot, err := e.AllocateSlot(dirStart)
	if err != nil {
		return Slot{}, err
	}
	slot.Entry = NewEntry(name, AttrDirectory, newCluster, 0)
	if err := e.writeSlot(slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// RenameEntry overwrites the name field of an existing entry in place.
// Preconditions: old exists, new does not.
func (e *Engine) RenameEntry(dirStart uint32, oldName, newName [11]byte) error {
	dirStart = e.Canonicalize(dirStart)

	slot, err := e.Lookup(dirStart, oldName)
	if err != nil {
		return err
	}
	if _, err := e.Lookup(dirStart, newName); err == nil {
		return ferrors.New(ferrors.ErrAlreadyExists)
	}

	slot.Entry.SetRawName(newName)
	return e.writeSlot(slot)
}

// freeChain walks and frees every cluster in the chain starting at
// firstCluster. A firstCluster of 0 means there is nothing to free.
func (e *Engine) freeChain(firstCluster uint32) error {
	if firstCluster == 0 {
		return nil
	}

	clusters, err := e.walker.All(firstCluster)
	if err != nil {
		return err
	}
	for _, cluster := range clusters {
		if err := e.fat.MarkFree(cluster); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile marks the slot deleted and frees the entry's data cluster
// chain.
func (e *Engine) DeleteFile(dirStart uint32, name [11]byte) error {
	dirStart = e.Canonicalize(dirStart)

	slot, err := e.Lookup(dirStart, name)
	if err != nil {
		return err
	}

	firstCluster := slot.Entry.FirstCluster()

	slot.Entry.MarkDeleted()
	if err := e.writeSlot(slot); err != nil {
		return err
	}

	return e.freeChain(firstCluster)
}

// IsEmptyDir reports whether dirCluster contains nothing but "." and "..".
func (e *Engine) IsEmptyDir(dirCluster uint32) (bool, error) {
	slots, err := e.Enumerate(dirCluster)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		name := slot.Entry.TrimmedName()
		if name != "." && name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// RemoveDir requires the target directory be empty (containing only "."
// and ".."), then behaves as DeleteFile against its parent entry.
func (e *Engine) RemoveDir(dirStart uint32, name [11]byte) error {
	dirStart = e.Canonicalize(dirStart)

	slot, err := e.Lookup(dirStart, name)
	if err != nil {
		return err
	}
	if !slot.Entry.IsDirectory() {
		return ferrors.New(ferrors.ErrNotADirectory)
	}

	empty, err := e.IsEmptyDir(slot.Entry.FirstCluster())
	if err != nil {
		return err
	}
	if !empty {
		return ferrors.New(ferrors.ErrDirectoryNotEmpty)
	}

	return e.DeleteFile(dirStart, name)
}

// Descriptor exposes the volume descriptor backing this engine, for callers
// (like the session and FAT accessor) that need geometry without importing
// volume directly.
func (e *Engine) Descriptor() *volume.Descriptor {
	return e.desc
}

// FAT exposes the FAT accessor backing this engine.
func (e *Engine) FAT() *fat.Accessor {
	return e.fat
}

// Walker exposes the cluster-chain walker backing this engine.
func (e *Engine) Walker() *chain.Walker {
	return e.walker
}

// Image exposes the underlying image, for read/write operations on file
// data that live outside the directory engine's own responsibilities.
func (e *Engine) Image() *blockio.Image {
	return e.img
}
