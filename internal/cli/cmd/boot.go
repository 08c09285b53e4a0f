package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jatgam/jcsim/internal/cli"
	"github.com/jatgam/jcsim/internal/kernel"
	"github.com/jatgam/jcsim/internal/log"
	"github.com/jatgam/jcsim/internal/tty"
	"github.com/jatgam/jcsim/internal/vm"
)

// Boot returns the boot command.
func Boot() cli.Command {
	return &boot{}
}

type boot struct {
	diskPath  string
	timeslice int64
	logLevel  slog.Level
	trace     bool
}

func (boot) Description() string {
	return "boot the simulator and run the operator loop"
}

func (boot) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `boot [-disk file] [-timeslice cycles] [-trace]

Boots the machine from a disk image and services operator interrupts until
shutdown. A blank image is formatted; a foreign partition type is fatal.`)

	return err
}

func (b *boot) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("boot", flag.ExitOnError)
	fs.StringVar(&b.diskPath, "disk", "disk.img", "disk image `file`")
	fs.Int64Var(&b.timeslice, "timeslice", int64(vm.DefaultTimeSlice), "dispatch timeslice in `cycles`")
	fs.BoolVar(&b.trace, "trace", false, "dump queues and memory on every dispatch")
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return b.logLevel.UnmarshalText([]byte(s))
	})

	return fs
}

func (b *boot) Run(ctx context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	log.LogLevel.Set(b.logLevel)

	disk, err := vm.OpenDisk(b.diskPath, logger)
	if err != nil {
		logger.Error("cannot open disk", "err", err)
		return 1
	}

	cons, closeCons, err := openConsole(out)
	if err != nil {
		logger.Error("cannot open console", "err", err)
		return 1
	}
	defer closeCons()

	machine := vm.New(&vm.RAM{}, logger)

	opts := []kernel.Option{
		kernel.WithConsole(cons),
		kernel.WithTimeSlice(vm.Word(b.timeslice)),
		kernel.WithLogger(logger),
	}
	if b.trace {
		opts = append(opts, kernel.WithTrace(out))
	}

	k := kernel.New(machine, disk, opts...)

	if err := k.Boot(); err != nil {
		logger.Error("boot failed", "err", err)
		return 1
	}

	if err := k.Run(ctx); err != nil {
		logger.Error("simulator stopped", "err", err)
		return 1
	}

	return 0
}

// openConsole prefers the raw terminal console and falls back to buffered
// streams when stdin is a pipe.
func openConsole(out io.Writer) (kernel.Console, func(), error) {
	cons, err := tty.New()

	switch {
	case err == nil:
		return cons, cons.Close, nil
	case errors.Is(err, tty.ErrNoTTY):
		return tty.NewPlain(os.Stdin, out), func() {}, nil
	default:
		return nil, nil, err
	}
}
