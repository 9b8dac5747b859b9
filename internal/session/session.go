// Package session owns the in-memory state of a single interactive run:
// the current-directory cluster and textual path, and the open-file table.
// Every piece of session state lives in a *Session value passed explicitly
// to the dispatcher, never in package globals.
package session

import (
	"strings"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/dirent"
)

// Session holds the current-directory state and open-file table for one
// interactive run, plus the engine it operates against.
type Session struct {
	Engine *dirent.Engine

	cwdCluster uint32
	cwdPath    string

	openFiles *OpenFileTable
}

// New builds a Session rooted at the volume's root directory.
func New(engine *dirent.Engine) *Session {
	return &Session{
		Engine:     engine,
		cwdCluster: engine.Descriptor().RootCluster,
		cwdPath:    "/",
		openFiles:  NewOpenFileTable(Capacity),
	}
}

// CWDCluster returns the canonical (never zero) first-cluster of the
// current directory.
func (s *Session) CWDCluster() uint32 {
	return s.cwdCluster
}

// CWDPath returns the current textual working path.
func (s *Session) CWDPath() string {
	return s.cwdPath
}

// OpenFiles returns the session's open-file table.
func (s *Session) OpenFiles() *OpenFileTable {
	return s.openFiles
}

// ChangeDir drives the current-directory state machine for "cd".
func (s *Session) ChangeDir(name string) error {
	switch name {
	case ".":
		return nil
	case "..":
		return s.changeToParent()
	default:
		return s.changeToChild(name)
	}
}

func (s *Session) changeToParent() error {
	if s.cwdCluster == s.Engine.Descriptor().RootCluster {
		return ferrors.New(ferrors.ErrAlreadyAtRoot)
	}

	dotDot, err := dirent.ToShortName("..")
	if err != nil {
		return err
	}

	slot, err := s.Engine.Lookup(s.cwdCluster, dotDot)
	if err != nil {
		return err
	}

	parent := slot.Entry.FirstCluster()
	if parent == 0 {
		s.cwdCluster = s.Engine.Descriptor().RootCluster
		s.cwdPath = "/"
		return nil
	}

	s.cwdCluster = parent
	s.cwdPath = popPathSegment(s.cwdPath)
	return nil
}

func (s *Session) changeToChild(name string) error {
	shortName, err := dirent.ToShortName(name)
	if err != nil {
		return err
	}

	slot, err := s.Engine.Lookup(s.cwdCluster, shortName)
	if err != nil {
		return err
	}
	if !slot.Entry.IsDirectory() {
		return ferrors.New(ferrors.ErrNotADirectory)
	}

	s.cwdCluster = s.Engine.Canonicalize(slot.Entry.FirstCluster())
	s.cwdPath = pushPathSegment(s.cwdPath, slot.Entry.TrimmedName())
	return nil
}

func pushPathSegment(path, name string) string {
	if path == "/" {
		return "/" + name
	}
	return path + "/" + name
}

func popPathSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}
