// Package cli contains the command-line interface.
package cli

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/jatgam/jcsim/internal/log"
)

// Command is one sub-command of the CLI, with its own flags and action.
type Command interface {
	// FlagSet returns the command's name and options.
	FlagSet() *flag.FlagSet

	// Description returns a one-line summary for command listings.
	Description() string

	// Usage prints detailed command documentation.
	Usage(out io.Writer) error

	// Run executes the command and returns its exit code. Command output
	// goes to out; diagnostics go to the logger.
	Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int
}

// Commander dispatches the process arguments to a sub-command.
type Commander struct {
	ctx context.Context
	log *log.Logger

	help     Command
	commands []Command
}

// New creates a Commander.
func New(ctx context.Context) *Commander {
	return &Commander{
		ctx: ctx,
	}
}

// Execute finds the named sub-command, parses its flags, and runs it.
// Without arguments, or with an unknown command, help runs instead.
func (cli *Commander) Execute(args []string) int {
	if len(args) == 0 {
		flag.Parse()
		cli.help.Run(cli.ctx, nil, os.Stdout, cli.log)

		return 1
	}

	found := cli.help

	for _, cmd := range cli.commands {
		if args[0] == cmd.FlagSet().Name() {
			found = cmd
		}
	}

	fs := found.FlagSet()

	if err := fs.Parse(args[1:]); err != nil {
		cli.log.Error("parse error", "err", err)
		return 1
	}

	return found.Run(cli.ctx, fs.Args(), os.Stdout, cli.log)
}

// WithCommands sets the sub-command list.
func (cli *Commander) WithCommands(cmds []Command) *Commander {
	cli.commands = append([]Command(nil), cmds...)
	return cli
}

// WithHelp sets the help command.
func (cli *Commander) WithHelp(cmd Command) *Commander {
	cli.help = cmd
	return cli
}

// WithLogger installs the default logger on stderr, leaving stdout for
// simulator output.
func (cli *Commander) WithLogger() *Commander {
	logger := log.NewFormattedLogger(os.Stderr)
	cli.log = logger

	log.SetDefault(logger)

	return cli
}

// Type aliases from the standard library.
type (
	Flag    = flag.Flag
	FlagSet = flag.FlagSet
)
