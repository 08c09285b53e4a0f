// Package tool defines very naive scripts for development tasks. They are
// not intended to be portable; they replace rote commands with named tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	path "path/filepath"
	"time"
)

var usage = `go run internal/tool <COMMAND>

Commands:

- deps  installs development dependencies: golint, stringer
- lint  check style with go vet and golint
`

func main() {
	args := os.Args

	if err := projectWorkingDirectory(); err != nil {
		log.Fatal(err)
	}

	switch {
	case len(args) == 2 && args[1] == "deps":
		if err := installDeps(); err != nil {
			log.Fatal(err)
		}
	case len(args) == 2 && args[1] == "lint":
		if err := lint(); err != nil {
			log.Fatal(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
	}
}

// projectWorkingDirectory finds the project directory, i.e. the working
// directory or its nearest ancestor holding a go.mod, and changes into it.
func projectWorkingDirectory() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for {
		file := path.Join(dir, "go.mod")

		if _, err := os.Stat(file); err == nil {
			break
		} else if os.IsNotExist(err) {
			dir = path.Dir(dir)
		} else {
			return err
		}
	}

	if dir == path.Dir(dir) {
		return errors.New("project directory is root directory")
	}

	return os.Chdir(dir)
}

func installDeps() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	goCmd, err := exec.LookPath("go")
	if err != nil {
		return fmt.Errorf("go (required): %w", err)
	}

	if err := run(ctx, goCmd, "version"); err != nil {
		return err
	}

	for _, tool := range []string{
		"golang.org/x/lint/golint@latest",
		"golang.org/x/tools/cmd/stringer@latest",
	} {
		fmt.Println("go install -v", tool)

		if err := run(ctx, goCmd, "install", "-v", tool); err != nil {
			return fmt.Errorf("go install %s: %w", tool, err)
		}
	}

	return nil
}

func lint() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, "go", "vet", "./..."); err != nil {
		return err
	}

	golint, err := exec.LookPath("golint")
	if err != nil {
		return fmt.Errorf("golint: run `go run internal/tool deps` first: %w", err)
	}

	return run(ctx, golint, "./...")
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
