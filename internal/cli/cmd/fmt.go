package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/jatgam/jcsim/internal/cli"
	"github.com/jatgam/jcsim/internal/log"
	"github.com/jatgam/jcsim/internal/vm"
)

// Format returns the disk-format command.
func Format() cli.Command {
	return &format{}
}

type format struct {
	diskPath string
}

func (format) Description() string {
	return "create and format a disk image"
}

func (format) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `fmt [-disk file]

Creates a blank disk image, writes the partition layout, and syncs it. Any
existing image at the path is replaced.`)

	return err
}

func (f *format) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	fs.StringVar(&f.diskPath, "disk", "disk.img", "disk image `file`")

	return fs
}

func (f *format) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	disk, err := vm.CreateDisk(f.diskPath, logger)
	if err != nil {
		logger.Error("cannot create disk", "err", err)
		return 1
	}

	disk.Format()

	if err := disk.Sync(); err != nil {
		logger.Error("cannot write disk", "err", err)
		return 1
	}

	fmt.Fprintf(out, "formatted %s\n", f.diskPath)

	return 0
}
