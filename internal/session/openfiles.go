package session

import (
	"strings"

	"github.com/dargueta/fatshell/ferrors"
)

// Capacity is the fixed capacity of the open-file table.
const Capacity = 10

// validModes enumerates the modes open() accepts, without their leading
// dash.
var validModes = map[string]bool{
	"r": true, "w": true, "rw": true, "wr": true,
}

// OpenFile is one active handle: its short name, access mode, byte offset,
// and an informational origin path.
type OpenFile struct {
	Name   string `csv:"name"`
	Mode   string `csv:"mode"`
	Offset uint32 `csv:"offset"`
	Path   string `csv:"path"`
}

// CanRead reports whether this handle's mode permits reading.
func (f *OpenFile) CanRead() bool {
	return f.Mode == "r" || f.Mode == "rw" || f.Mode == "wr"
}

// CanWrite reports whether this handle's mode permits writing.
func (f *OpenFile) CanWrite() bool {
	return f.Mode == "w" || f.Mode == "rw" || f.Mode == "wr"
}

// OpenFileTable is the fixed-capacity table of active handles.
type OpenFileTable struct {
	handles  []*OpenFile
	capacity int
}

// NewOpenFileTable builds an empty table with the given capacity.
func NewOpenFileTable(capacity int) *OpenFileTable {
	return &OpenFileTable{capacity: capacity}
}

func (t *OpenFileTable) find(name string) *OpenFile {
	for _, h := range t.handles {
		if h.Name == name {
			return h
		}
	}
	return nil
}

// Open validates mode (which must include its leading dash, e.g. "-rw"),
// checks for an existing handle with the same name, checks table capacity,
// and appends a new handle at offset 0 on success.
func (t *OpenFileTable) Open(name, dashedMode, originPath string) (*OpenFile, error) {
	mode, ok := strings.CutPrefix(dashedMode, "-")
	if !ok || !validModes[mode] {
		return nil, ferrors.New(ferrors.ErrInvalidMode)
	}

	if t.find(name) != nil {
		return nil, ferrors.New(ferrors.ErrAlreadyOpen)
	}
	if len(t.handles) >= t.capacity {
		return nil, ferrors.New(ferrors.ErrTooManyOpen)
	}

	handle := &OpenFile{Name: name, Mode: mode, Offset: 0, Path: originPath}
	t.handles = append(t.handles, handle)
	return handle, nil
}

// Close removes the handle named name, preserving the order of the
// remaining handles.
func (t *OpenFileTable) Close(name string) error {
	for i, h := range t.handles {
		if h.Name == name {
			t.handles = append(t.handles[:i], t.handles[i+1:]...)
			return nil
		}
	}
	return ferrors.New(ferrors.ErrNotOpen)
}

// Get returns the handle named name, or ErrNotOpen if there is none.
func (t *OpenFileTable) Get(name string) (*OpenFile, error) {
	h := t.find(name)
	if h == nil {
		return nil, ferrors.New(ferrors.ErrNotOpen)
	}
	return h, nil
}

// List returns the open handles in insertion order.
func (t *OpenFileTable) List() []*OpenFile {
	out := make([]*OpenFile, len(t.handles))
	copy(out, t.handles)
	return out
}

// Seek sets name's handle offset to offset, which must not exceed
// sizeOnDisk (the directory entry's current file size).
func (t *OpenFileTable) Seek(name string, offset, sizeOnDisk uint32) error {
	h, err := t.Get(name)
	if err != nil {
		return err
	}
	if offset > sizeOnDisk {
		return ferrors.New(ferrors.ErrOffsetTooLarge)
	}
	h.Offset = offset
	return nil
}
