package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/jatgam/jcsim/internal/cli"
	"github.com/jatgam/jcsim/internal/log"
)

type help struct {
	cmd []cli.Command
}

var _ cli.Command = (*help)(nil)

// Help returns the help command over cmds.
func Help(cmds []cli.Command) cli.Command {
	return &help{cmd: cmds}
}

func (help) Description() string {
	return "display help for commands"
}

func (h *help) FlagSet() *cli.FlagSet {
	return flag.NewFlagSet("help", flag.ExitOnError)
}

func (h *help) Run(_ context.Context, args []string, out io.Writer, _ *log.Logger) int {
	if len(args) == 1 {
		for _, cmd := range h.cmd {
			if args[0] == cmd.FlagSet().Name() {
				h.printCommandHelp(out, cmd)
			}
		}
	} else if err := h.Usage(out); err != nil {
		return 1
	}

	return 0
}

func (h *help) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
jcsim simulates a small computer: a word-addressed CPU, a cooperative
kernel, and an operator console driving its interrupts.

Usage:

        jcsim <command> [option]... [arg]...

Commands:`)
	if err != nil {
		return err
	}

	for _, cmd := range h.cmd {
		fmt.Fprintf(out, "  %-20s %s\n", cmd.FlagSet().Name(), cmd.Description())
	}

	fmt.Fprintf(out, "  %-20s %s\n", h.FlagSet().Name(), h.Description())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Use `jcsim help <command>` to get help for a command.")

	return err
}

func (h *help) printCommandHelp(out io.Writer, cmd cli.Command) {
	_ = cmd.FlagSet().Parse(nil)

	fmt.Fprint(out, "Usage:\n\n        jcsim ")

	if err := cmd.Usage(out); err != nil {
		return
	}

	fmt.Fprintln(out, "\nOptions:")
	cmd.FlagSet().PrintDefaults()
}
