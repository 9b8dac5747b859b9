package blockio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/fatshell/internal/blockio"
)

func newImage(t *testing.T, size int) *blockio.Image {
	t.Helper()
	buf := make([]byte, size)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return blockio.New(stream, int64(size))
}

func TestReadAt_RoundTrip(t *testing.T) {
	img := newImage(t, 4096)

	err := img.WriteAt(512, []byte("hello world"))
	require.NoError(t, err)

	got, err := img.ReadAt(512, len("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestReadAt_OutOfBounds(t *testing.T) {
	img := newImage(t, 512)

	_, err := img.ReadAt(500, 100)
	assert.Error(t, err)
}

func TestWriteAt_OutOfBounds(t *testing.T) {
	img := newImage(t, 512)

	err := img.WriteAt(500, make([]byte, 100))
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	img := newImage(t, 2048)
	assert.EqualValues(t, 2048, img.Size())
}
