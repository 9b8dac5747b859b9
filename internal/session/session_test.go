package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatshell/internal/dirent"
	"github.com/dargueta/fatshell/internal/fat"
	"github.com/dargueta/fatshell/internal/fatshelltest"
	"github.com/dargueta/fatshell/internal/session"
)

func newSession(t *testing.T) (*session.Session, *fatshelltest.Image) {
	t.Helper()
	img := fatshelltest.New().Build(t)
	acc, err := fat.New(img.Img, img.Desc)
	require.NoError(t, err)
	engine := dirent.New(img.Img, img.Desc, acc)
	return session.New(engine), img
}

func short(t *testing.T, name string) [11]byte {
	t.Helper()
	n, err := dirent.ToShortName(name)
	require.NoError(t, err)
	return n
}

func TestChangeDir_IntoChildAndBack(t *testing.T) {
	s, img := newSession(t)

	_, err := s.Engine.CreateDir(img.Desc.RootCluster, short(t, "SUB"))
	require.NoError(t, err)

	require.NoError(t, s.ChangeDir("SUB"))
	assert.Equal(t, "/SUB", s.CWDPath())
	assert.NotEqual(t, img.Desc.RootCluster, s.CWDCluster())

	require.NoError(t, s.ChangeDir(".."))
	assert.Equal(t, "/", s.CWDPath())
	assert.Equal(t, img.Desc.RootCluster, s.CWDCluster())
}

func TestChangeDir_AboveRootFails(t *testing.T) {
	s, _ := newSession(t)
	err := s.ChangeDir("..")
	assert.Error(t, err)
}

func TestChangeDir_IntoFileFails(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "F"))
	require.NoError(t, err)

	err = s.ChangeDir("F")
	assert.Error(t, err)
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "A.TXT"))
	require.NoError(t, err)

	_, err = s.Open("A.TXT", "-rw")
	require.NoError(t, err)

	n, err := s.Write("A.TXT", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	require.NoError(t, s.Seek("A.TXT", 0))

	data, err := s.Read("A.TXT", 100)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	require.NoError(t, s.Close("A.TXT"))
}

func TestWrite_SpansMultipleClusters(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "BIG"))
	require.NoError(t, err)

	_, err = s.Open("BIG", "-w")
	require.NoError(t, err)

	payload := make([]byte, int(img.Desc.BytesPerCluster)*2+17)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	n, err := s.Write("BIG", payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	require.NoError(t, s.Close("BIG"))

	_, err = s.Open("BIG", "-r")
	require.NoError(t, err)

	readBack, err := s.Read("BIG", uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, readBack)
}

func TestOpen_DuplicateRejected(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "A"))
	require.NoError(t, err)

	_, err = s.Open("A", "-r")
	require.NoError(t, err)

	_, err = s.Open("A", "-r")
	assert.Error(t, err)
}

func TestOpen_DirectoryRejected(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateDir(img.Desc.RootCluster, short(t, "D"))
	require.NoError(t, err)

	_, err = s.Open("D", "-r")
	assert.Error(t, err)
}

func TestRead_WrongModeRejected(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "A"))
	require.NoError(t, err)

	_, err = s.Open("A", "-w")
	require.NoError(t, err)

	_, err = s.Read("A", 10)
	assert.Error(t, err)
}

func TestSeek_PastEndOfFileRejected(t *testing.T) {
	s, img := newSession(t)
	_, err := s.Engine.CreateFile(img.Desc.RootCluster, short(t, "A"))
	require.NoError(t, err)

	_, err = s.Open("A", "-r")
	require.NoError(t, err)

	err = s.Seek("A", 1)
	assert.Error(t, err)
}
