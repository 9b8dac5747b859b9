// Package shell implements the command dispatcher: a line-oriented REPL
// that tokenizes input, validates arity, and translates each command into
// calls against a session.Session, rendering its results or a recoverable
// Error: line. It is a thin adapter: it owns no volume state of its own.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/dirent"
	"github.com/dargueta/fatshell/internal/session"
)

// Shell drives the REPL loop for one open image.
type Shell struct {
	sess          *session.Session
	imageBaseName string

	in  *bufio.Scanner
	out io.Writer
}

// New builds a Shell reading commands from in and writing prompts/results
// to out. imagePath is used only to derive the prompt's basename.
func New(sess *session.Session, imagePath string, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		sess:          sess,
		imageBaseName: filepath.Base(imagePath),
		in:            bufio.NewScanner(in),
		out:           out,
	}
}

func (s *Shell) prompt() string {
	return fmt.Sprintf("./%s%s> ", s.imageBaseName, s.sess.CWDPath())
}

// Run executes the REPL loop until EOF or an `exit` command. It never
// returns an error for recoverable command failures; those are printed and
// the loop continues.
func (s *Shell) Run() {
	for {
		fmt.Fprint(s.out, s.prompt())
		if !s.in.Scan() {
			return
		}

		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" {
			if err := requireArity("exit", fields[1:], 0); err != nil {
				s.printError(err)
				continue
			}
			return
		}

		if err := s.dispatch(fields); err != nil {
			s.printError(err)
		}
	}
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.out, "Error: %s\n", err.Error())
}

func requireArity(cmd string, args []string, n int) error {
	if len(args) != n {
		return ferrors.WithMessage(ferrors.ErrBadArity,
			fmt.Sprintf("%q takes %d argument(s), got %d", cmd, n, len(args)))
	}
	return nil
}

func shortNameArg(name string) ([11]byte, error) {
	return dirent.ToShortName(name)
}

func (s *Shell) dispatch(fields []string) error {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "info":
		return s.cmdInfo(args)
	case "ls":
		return s.cmdLs(args)
	case "cd":
		return s.cmdCd(args)
	case "mkdir":
		return s.cmdMkdir(args)
	case "creat":
		return s.cmdCreat(args)
	case "open":
		return s.cmdOpen(args)
	case "close":
		return s.cmdClose(args)
	case "lsof":
		return s.cmdLsof(args)
	case "lseek":
		return s.cmdLseek(args)
	case "read":
		return s.cmdRead(args)
	case "write":
		return s.cmdWrite(args)
	case "rename":
		return s.cmdRename(args)
	case "rm":
		return s.cmdRm(args)
	case "rmdir":
		return s.cmdRmdir(args)
	default:
		return ferrors.WithMessage(ferrors.ErrUnknownCommand, cmd)
	}
}

func (s *Shell) cmdInfo(args []string) error {
	if err := requireArity("info", args, 0); err != nil {
		return err
	}

	desc := s.sess.Engine.Descriptor()
	fmt.Fprintf(s.out, "root cluster: %d\n", desc.RootCluster)
	fmt.Fprintf(s.out, "bytes per sector: %d\n", desc.BytesPerSector)
	fmt.Fprintf(s.out, "sectors per cluster: %d\n", desc.SectorsPerCluster)
	fmt.Fprintf(s.out, "total clusters: %d\n", desc.TotalClusters)
	fmt.Fprintf(s.out, "FAT entries: %d\n", desc.FATEntryCount)
	fmt.Fprintf(s.out, "image size: %d\n", s.sess.Engine.Image().Size())
	return nil
}

func (s *Shell) cmdLs(args []string) error {
	if err := requireArity("ls", args, 0); err != nil {
		return err
	}

	slots, err := s.sess.Engine.Enumerate(s.sess.CWDCluster())
	if err != nil {
		return err
	}

	for _, slot := range slots {
		attr := slot.Entry.Attr()
		if attr&0x10 == 0 && attr&0x20 == 0 {
			continue
		}
		fmt.Fprintln(s.out, slot.Entry.TrimmedName())
	}
	return nil
}

func (s *Shell) cmdCd(args []string) error {
	if err := requireArity("cd", args, 1); err != nil {
		return err
	}
	return s.sess.ChangeDir(args[0])
}

func (s *Shell) cmdMkdir(args []string) error {
	if err := requireArity("mkdir", args, 1); err != nil {
		return err
	}
	name, err := shortNameArg(args[0])
	if err != nil {
		return err
	}
	_, err = s.sess.Engine.CreateDir(s.sess.CWDCluster(), name)
	return err
}

func (s *Shell) cmdCreat(args []string) error {
	if err := requireArity("creat", args, 1); err != nil {
		return err
	}
	name, err := shortNameArg(args[0])
	if err != nil {
		return err
	}
	_, err = s.sess.Engine.CreateFile(s.sess.CWDCluster(), name)
	return err
}

func (s *Shell) cmdOpen(args []string) error {
	if err := requireArity("open", args, 2); err != nil {
		return err
	}
	_, err := s.sess.Open(args[0], args[1])
	return err
}

func (s *Shell) cmdClose(args []string) error {
	if err := requireArity("close", args, 1); err != nil {
		return err
	}
	return s.sess.Close(args[0])
}

func (s *Shell) cmdLsof(args []string) error {
	if err := requireArity("lsof", args, 0); err != nil {
		return err
	}

	handles := s.sess.OpenFiles().List()
	out, err := gocsv.MarshalString(handles)
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, out)
	return nil
}

func (s *Shell) cmdLseek(args []string) error {
	if err := requireArity("lseek", args, 2); err != nil {
		return err
	}
	offset, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return ferrors.WithMessage(ferrors.ErrBadArity, fmt.Sprintf("offset %q is not a decimal integer", args[1]))
	}
	return s.sess.Seek(args[0], uint32(offset))
}

func (s *Shell) cmdRead(args []string) error {
	if err := requireArity("read", args, 2); err != nil {
		return err
	}
	size, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return ferrors.WithMessage(ferrors.ErrBadArity, fmt.Sprintf("size %q is not a decimal integer", args[1]))
	}

	data, err := s.sess.Read(args[0], uint32(size))
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if err := requireArity("write", args, 2); err != nil {
		return err
	}

	n, err := s.sess.Write(args[0], []byte(args[1]))
	fmt.Fprintf(s.out, "%d bytes written\n", n)
	return err
}

func (s *Shell) cmdRename(args []string) error {
	if err := requireArity("rename", args, 2); err != nil {
		return err
	}
	oldName, err := shortNameArg(args[0])
	if err != nil {
		return err
	}
	newName, err := shortNameArg(args[1])
	if err != nil {
		return err
	}
	return s.sess.Engine.RenameEntry(s.sess.CWDCluster(), oldName, newName)
}

func (s *Shell) cmdRm(args []string) error {
	if err := requireArity("rm", args, 1); err != nil {
		return err
	}
	name, err := shortNameArg(args[0])
	if err != nil {
		return err
	}
	return s.sess.Engine.DeleteFile(s.sess.CWDCluster(), name)
}

func (s *Shell) cmdRmdir(args []string) error {
	if err := requireArity("rmdir", args, 1); err != nil {
		return err
	}
	name, err := shortNameArg(args[0])
	if err != nil {
		return err
	}
	return s.sess.Engine.RemoveDir(s.sess.CWDCluster(), name)
}
