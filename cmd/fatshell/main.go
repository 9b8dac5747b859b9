package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/fatshell/ferrors"
	"github.com/dargueta/fatshell/internal/blockio"
	"github.com/dargueta/fatshell/internal/dirent"
	"github.com/dargueta/fatshell/internal/fat"
	"github.com/dargueta/fatshell/internal/session"
	"github.com/dargueta/fatshell/internal/shell"
	"github.com/dargueta/fatshell/internal/volume"
)

func main() {
	app := cli.App{
		Name:      "fatshell",
		Usage:     "interactively browse and edit a FAT32 disk image",
		ArgsUsage: "IMAGE_FILE",
		Action:    runShell,
	}

	if err := app.Run(os.Args); err != nil {
		var driverErr *ferrors.DriverError
		if errors.As(err, &driverErr) {
			fmt.Fprintf(os.Stderr, "fatal: %s\n", driverErr.Error())
			os.Exit(1)
		}
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func runShell(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return ferrors.WithMessage(ferrors.ErrInvalidImage, "expected exactly one positional argument, the image path")
	}
	imagePath := c.Args().Get(0)

	file, err := os.OpenFile(imagePath, os.O_RDWR, 0)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrImageUnreadable, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return ferrors.Wrap(ferrors.ErrImageUnreadable, err)
	}

	img := blockio.New(file, info.Size())

	bootSector, err := img.ReadAt(0, volume.BootSectorSize)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrImageUnreadable, err)
	}

	desc, err := volume.Load(bootSector)
	if err != nil {
		return err
	}

	accessor, err := fat.New(img, desc)
	if err != nil {
		return err
	}

	engine := dirent.New(img, desc, accessor)
	sess := session.New(engine)

	sh := shell.New(sess, imagePath, os.Stdin, os.Stdout)
	sh.Run()
	return nil
}
