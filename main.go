// jcsim is the command-line interface to the Jatgam computer simulator.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jatgam/jcsim/internal/cli"
	"github.com/jatgam/jcsim/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Boot(),
	cmd.Format(),
}

// Entry point.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result :=
		cli.New(ctx).
			WithLogger().
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
