package session

import (
	"errors"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/dirent"
)

// Open looks up name in the current directory, rejects directories, and
// registers a new handle at offset 0. The handle's recorded path is the
// session's current working directory at the time of the open, not the
// image's own path.
func (s *Session) Open(name, mode string) (*OpenFile, error) {
	shortName, err := dirent.ToShortName(name)
	if err != nil {
		return nil, err
	}

	slot, err := s.Engine.Lookup(s.cwdCluster, shortName)
	if err != nil {
		return nil, err
	}
	if slot.Entry.IsDirectory() {
		return nil, ferrors.New(ferrors.ErrNotARegularFile)
	}

	return s.openFiles.Open(name, mode, s.cwdPath)
}

// Close removes the handle named name from the open-file table.
func (s *Session) Close(name string) error {
	return s.openFiles.Close(name)
}

// Seek sets the handle's offset. The new offset must not exceed the
// current on-disk size of the underlying entry, re-read fresh rather than
// cached.
func (s *Session) Seek(name string, offset uint32) error {
	if _, err := s.openFiles.Get(name); err != nil {
		return err
	}

	shortName, err := dirent.ToShortName(name)
	if err != nil {
		return err
	}
	slot, err := s.Engine.Lookup(s.cwdCluster, shortName)
	if err != nil {
		return err
	}

	return s.openFiles.Seek(name, offset, slot.Entry.FileSize())
}

// Read starts at the handle's current offset and reads up to n bytes from
// the file's cluster chain, never past the entry's recorded size, advancing
// the offset by however many bytes were actually read.
func (s *Session) Read(name string, n uint32) ([]byte, error) {
	handle, err := s.openFiles.Get(name)
	if err != nil {
		return nil, err
	}
	if !handle.CanRead() {
		return nil, ferrors.New(ferrors.ErrWrongMode)
	}

	shortName, err := dirent.ToShortName(name)
	if err != nil {
		return nil, err
	}
	slot, err := s.Engine.Lookup(s.cwdCluster, shortName)
	if err != nil {
		return nil, err
	}

	size := slot.Entry.FileSize()
	if handle.Offset >= size {
		return nil, nil
	}

	remaining := size - handle.Offset
	if n > remaining {
		n = remaining
	}
	if n == 0 || slot.Entry.FirstCluster() == 0 {
		return nil, nil
	}

	desc := s.Engine.Descriptor()
	clusterSize := desc.BytesPerCluster
	walker := s.Engine.Walker()

	out := make([]byte, 0, n)
	offset := handle.Offset

	for uint32(len(out)) < n {
		clusterIndex := offset / clusterSize
		withinCluster := offset % clusterSize

		cluster, err := walker.Skip(slot.Entry.FirstCluster(), clusterIndex)
		if err != nil {
			return nil, err
		}

		data, err := s.Engine.Image().ReadAt(desc.ClusterOffset(cluster)+int64(withinCluster),
			int(clusterSize-withinCluster))
		if err != nil {
			return nil, err
		}

		want := n - uint32(len(out))
		if uint32(len(data)) > want {
			data = data[:want]
		}

		out = append(out, data...)
		offset += uint32(len(data))
	}

	handle.Offset = offset
	return out, nil
}

// Write starts at the handle's current offset and writes data into the
// file's cluster chain, extending the chain as needed, then persists any
// new first cluster and a grown file size back to the directory entry.
// Clusters are allocated and linked before any data is written for that
// cluster, so a no-space failure midway never corrupts already-written
// clusters. If the failure happens while still extending a brand-new
// (previously zero-cluster) file, the directory entry is never rewritten:
// the byte count Write returns still reflects what was physically written,
// but those bytes are not reachable through the file until a later
// successful write links the allocated chain into the directory entry.
func (s *Session) Write(name string, data []byte) (int, error) {
	handle, err := s.openFiles.Get(name)
	if err != nil {
		return 0, err
	}
	if !handle.CanWrite() {
		return 0, ferrors.New(ferrors.ErrWrongMode)
	}

	shortName, err := dirent.ToShortName(name)
	if err != nil {
		return 0, err
	}
	slot, err := s.Engine.Lookup(s.cwdCluster, shortName)
	if err != nil {
		return 0, err
	}

	desc := s.Engine.Descriptor()
	clusterSize := desc.BytesPerCluster
	walker := s.Engine.Walker()
	firstCluster := slot.Entry.FirstCluster()

	if firstCluster == 0 {
		newCluster, err := s.Engine.FAT().Allocate()
		if err != nil {
			return 0, err
		}
		firstCluster = newCluster
		slot.Entry.SetFirstCluster(firstCluster)
	}

	offset := handle.Offset
	written := 0

	for written < len(data) {
		clusterIndex := offset / clusterSize
		withinCluster := offset % clusterSize

		cluster, err := walker.Skip(firstCluster, clusterIndex)
		if errors.Is(err, ferrors.ErrOffsetBeyondEOF) {
			tail, terr := walker.Skip(firstCluster, clusterIndex-1)
			if terr != nil {
				return written, terr
			}
			cluster, err = walker.Extend(tail)
		}
		if err != nil {
			return written, err
		}

		chunk := data[written:]
		spaceInCluster := clusterSize - withinCluster
		if uint32(len(chunk)) > spaceInCluster {
			chunk = chunk[:spaceInCluster]
		}

		if err := s.Engine.Image().WriteAt(desc.ClusterOffset(cluster)+int64(withinCluster), chunk); err != nil {
			return written, err
		}

		written += len(chunk)
		offset += uint32(len(chunk))
	}

	handle.Offset = offset
	if offset > slot.Entry.FileSize() {
		slot.Entry.SetFileSize(offset)
	}
	if err := s.Engine.WriteSlot(slot); err != nil {
		return written, err
	}

	return written, nil
}
