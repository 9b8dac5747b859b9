// Package dirent implements the on-disk 32-byte directory entry codec and
// the directory engine: traversing directory clusters, locating and
// mutating 8.3 short-name entries.
package dirent

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dargueta/fatshell/ferrors"
)

// Size is the fixed size, in bytes, of one directory entry.
const Size = 32

// Attribute bit flags.
const (
	AttrDirectory  = 0x10
	AttrArchive    = 0x20
	AttrLongName   = 0x0F
)

const (
	firstByteFree    = 0x00
	firstByteDeleted = 0xE5
)

// Entry is a 32-byte on-disk directory entry record. It wraps the raw bytes
// directly rather than duplicating them into a separate in-memory struct,
// so a write-back always round-trips exactly the fields the engine
// understands and leaves every other byte (timestamps, NT-reserved, ...)
// untouched.
type Entry struct {
	raw [Size]byte
}

// FromBytes wraps an existing 32-byte slice as an Entry. The slice is
// copied; mutating the returned Entry does not affect the original slice
// until Bytes() is written back by the caller.
func FromBytes(data []byte) (Entry, error) {
	if len(data) != Size {
		return Entry{}, fmt.Errorf("dirent: entry must be exactly %d bytes, got %d", Size, len(data))
	}
	var e Entry
	copy(e.raw[:], data)
	return e, nil
}

// Bytes returns the raw 32-byte record, ready to be written back to disk.
func (e *Entry) Bytes() []byte {
	return e.raw[:]
}

// FirstByte returns the first byte of the 11-byte name field, which carries
// the free (0x00) and deleted (0xE5) sentinels.
func (e *Entry) FirstByte() byte {
	return e.raw[0]
}

// IsFree reports whether this slot marks the end of the directory: no
// further entries exist in this cluster or beyond in the chain.
func (e *Entry) IsFree() bool {
	return e.FirstByte() == firstByteFree
}

// IsDeleted reports whether this slot holds a deleted entry, available for
// reuse.
func (e *Entry) IsDeleted() bool {
	return e.FirstByte() == firstByteDeleted
}

// RawName returns the 11-byte space-padded short name field verbatim.
func (e *Entry) RawName() [11]byte {
	var name [11]byte
	copy(name[:], e.raw[0:11])
	return name
}

// SetRawName overwrites the 11-byte short name field in place.
func (e *Entry) SetRawName(name [11]byte) {
	copy(e.raw[0:11], name[:])
}

// MarkDeleted overwrites only the first byte of the name field with the
// 0xE5 deleted-entry sentinel, leaving the rest of the name (and the
// cluster pointer, size, and timestamps) untouched on disk.
func (e *Entry) MarkDeleted() {
	e.raw[0] = firstByteDeleted
}

// TrimmedName returns the short name with trailing ASCII spaces removed
// from the 8-byte name and 3-byte extension, joined with a dot when an
// extension is present.
func (e *Entry) TrimmedName() string {
	name := e.RawName()
	base := strings.TrimRight(string(name[0:8]), " ")
	ext := strings.TrimRight(string(name[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Attr returns the attribute byte.
func (e *Entry) Attr() byte {
	return e.raw[11]
}

// SetAttr overwrites the attribute byte.
func (e *Entry) SetAttr(attr byte) {
	e.raw[11] = attr
}

// IsDirectory reports whether the directory attribute bit is set.
func (e *Entry) IsDirectory() bool {
	return e.Attr()&AttrDirectory != 0
}

// IsLongNameComponent reports whether this entry is a VFAT long-name
// component that must be skipped.
func (e *Entry) IsLongNameComponent() bool {
	return e.Attr()&0x0F == AttrLongName
}

// FirstCluster returns the combined (HI<<16)|LO first-cluster number.
func (e *Entry) FirstCluster() uint32 {
	hi := binary.LittleEndian.Uint16(e.raw[20:22])
	lo := binary.LittleEndian.Uint16(e.raw[26:28])
	return (uint32(hi) << 16) | uint32(lo)
}

// SetFirstCluster writes the combined first-cluster number across the
// high/low fields.
func (e *Entry) SetFirstCluster(cluster uint32) {
	binary.LittleEndian.PutUint16(e.raw[20:22], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(e.raw[26:28], uint16(cluster&0xFFFF))
}

// Size returns the file size in bytes recorded in the entry.
func (e *Entry) FileSize() uint32 {
	return binary.LittleEndian.Uint32(e.raw[28:32])
}

// SetFileSize overwrites the file size field.
func (e *Entry) SetFileSize(size uint32) {
	binary.LittleEndian.PutUint32(e.raw[28:32], size)
}

// NewEntry builds a zeroed entry with the given short name, attribute,
// first cluster, and size already populated.
func NewEntry(name [11]byte, attr byte, firstCluster, size uint32) Entry {
	var e Entry
	e.SetRawName(name)
	e.SetAttr(attr)
	e.SetFirstCluster(firstCluster)
	e.SetFileSize(size)
	return e
}

// ToShortName converts a user-typed name into the padded 11-byte 8.3 form:
// upper-cased, left-justified, space-padded base and extension. "." and
// ".." are accepted verbatim since they have no extension to split on.
func ToShortName(name string) ([11]byte, error) {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}

	if name == "." {
		out[0] = '.'
		return out, nil
	}
	if name == ".." {
		out[0], out[1] = '.', '.'
		return out, nil
	}

	base, ext, hasExt := strings.Cut(name, ".")
	if hasExt && strings.Contains(ext, ".") {
		return out, ferrors.WithMessage(ferrors.ErrInvalidName, fmt.Sprintf("name %q has more than one extension", name))
	}

	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)

	if len(base) == 0 || len(base) > 8 {
		return out, ferrors.WithMessage(ferrors.ErrInvalidName, fmt.Sprintf("name %q: base must be 1-8 characters", name))
	}
	if len(ext) > 3 {
		return out, ferrors.WithMessage(ferrors.ErrInvalidName, fmt.Sprintf("name %q: extension must be at most 3 characters", name))
	}

	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out, nil
}
