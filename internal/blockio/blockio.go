// Package blockio provides random-access byte I/O over a FAT32 disk image,
// independent of whether the backing store is an *os.File or an in-memory
// buffer used by tests.
package blockio

import (
	"fmt"
	"io"
)

// Image is a seek-and-read/write adapter over a disk image stream. It keeps
// no read or write cache of its own: every operation repositions the
// underlying stream explicitly before touching it, assuming a single
// writable position handle shared by the whole engine.
type Image struct {
	stream io.ReadWriteSeeker
	size   int64
}

// New wraps stream as an Image. size is the total number of addressable
// bytes in the image, used for bounds checking.
func New(stream io.ReadWriteSeeker, size int64) *Image {
	return &Image{stream: stream, size: size}
}

// Size returns the total byte length of the image.
func (img *Image) Size() int64 {
	return img.size
}

func (img *Image) checkBounds(offset int64, length int) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("blockio: negative offset or length (offset=%d, length=%d)", offset, length)
	}
	if offset+int64(length) > img.size {
		return fmt.Errorf(
			"blockio: range [%d, %d) extends past end of image (size %d)",
			offset, offset+int64(length), img.size)
	}
	return nil
}

// ReadAt reads exactly length bytes starting at byte offset offset.
func (img *Image) ReadAt(offset int64, length int) ([]byte, error) {
	if err := img.checkBounds(offset, length); err != nil {
		return nil, err
	}

	if _, err := img.stream.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	buffer := make([]byte, length)
	if _, err := io.ReadFull(img.stream, buffer); err != nil {
		return nil, fmt.Errorf("blockio: short read at offset %d: %w", offset, err)
	}
	return buffer, nil
}

// WriteAt writes data starting at byte offset offset.
func (img *Image) WriteAt(offset int64, data []byte) error {
	if err := img.checkBounds(offset, len(data)); err != nil {
		return err
	}

	if _, err := img.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	n, err := img.stream.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("blockio: short write at offset %d: wrote %d of %d bytes", offset, n, len(data))
	}
	return nil
}
