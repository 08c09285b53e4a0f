// Package tty provides the operator console. The simulator's only device
// is its operator: every I/O completion, program launch, and shutdown
// arrives through these prompts.
package tty

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/jatgam/jcsim/internal/kernel"
	"github.com/jatgam/jcsim/internal/vm"
)

// ErrNoTTY is returned if standard input is not a terminal.
var ErrNoTTY = errors.New("console: not a TTY")

const interruptMenu = `------------------------
Processing interrupts:
0: No interrupt
1: Read character
2: Output character
3: Run program
4: Shutdown
`

// Console is the operator's front panel on a Unix terminal. The terminal
// runs raw so character prompts read a single unbuffered key; callers must
// Close to restore it.
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State
}

var _ kernel.Console = (*Console)(nil)

// New opens the console on the standard streams. If standard input is not
// a terminal, ErrNoTTY is returned and the caller should fall back to a
// Plain console.
func New() (*Console, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTTY, err)
	}

	cons := Console{
		in:    os.Stdin,
		out:   term.NewTerminal(os.Stdin, ""),
		fd:    fd,
		state: saved,
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		cons.Close()
		return nil, err
	}

	return &cons, nil
}

// Close returns the terminal to its initial state.
func (c *Console) Close() {
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	return unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO)
}

// PollInterrupt displays the interrupt menu and reads an id. Anything the
// operator types that is not a number comes back as EOL for the kernel to
// reject.
func (c *Console) PollInterrupt() (vm.Word, error) {
	fmt.Fprint(c.out, interruptMenu)

	return c.readNumber("Interrupt ID: ")
}

// RequestPID prompts for the process the operator is completing.
func (c *Console) RequestPID(reason string) (vm.Word, error) {
	return c.readNumber(fmt.Sprintf("Enter PID of process needing %s: ", reason))
}

// ReadChar reads a single raw key for an input completion.
func (c *Console) ReadChar() (rune, error) {
	fmt.Fprint(c.out, "Type a character: ")

	buf := make([]byte, 1)
	if _, err := io.ReadFull(c.in, buf); err != nil {
		return 0, err
	}

	fmt.Fprintf(c.out, "%c\n", buf[0])

	return rune(buf[0]), nil
}

// WriteChar displays a completed output character.
func (c *Console) WriteChar(ch rune) error {
	_, err := fmt.Fprintf(c.out, "Output: %c\n", ch)
	return err
}

// PickProgram prompts for a program file path.
func (c *Console) PickProgram() (string, error) {
	c.out.SetPrompt("Program file: ")
	defer c.out.SetPrompt("")

	line, err := c.out.ReadLine()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (c *Console) readNumber(prompt string) (vm.Word, error) {
	c.out.SetPrompt(prompt)
	defer c.out.SetPrompt("")

	line, err := c.out.ReadLine()
	if err != nil {
		return vm.EOL, err
	}

	n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return vm.EOL, nil
	}

	return vm.Word(n), nil
}

// Plain is the console over ordinary buffered streams, for pipes and
// tests. Character reads take the first rune of a line.
type Plain struct {
	in  *bufio.Reader
	out io.Writer
}

var _ kernel.Console = (*Plain)(nil)

// NewPlain creates a line-oriented console.
func NewPlain(in io.Reader, out io.Writer) *Plain {
	return &Plain{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (p *Plain) PollInterrupt() (vm.Word, error) {
	fmt.Fprint(p.out, interruptMenu)

	return p.readNumber("Interrupt ID: ")
}

func (p *Plain) RequestPID(reason string) (vm.Word, error) {
	return p.readNumber(fmt.Sprintf("Enter PID of process needing %s: ", reason))
}

func (p *Plain) ReadChar() (rune, error) {
	fmt.Fprint(p.out, "Type a character: ")

	line, err := p.readLine()
	if err != nil {
		return 0, err
	}

	if line == "" {
		return 0, io.ErrUnexpectedEOF
	}

	return []rune(line)[0], nil
}

func (p *Plain) WriteChar(ch rune) error {
	_, err := fmt.Fprintf(p.out, "Output: %c\n", ch)
	return err
}

func (p *Plain) PickProgram() (string, error) {
	fmt.Fprint(p.out, "Program file: ")
	return p.readLine()
}

func (p *Plain) readNumber(prompt string) (vm.Word, error) {
	fmt.Fprint(p.out, prompt)

	line, err := p.readLine()
	if err != nil {
		return vm.EOL, err
	}

	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return vm.EOL, nil
	}

	return vm.Word(n), nil
}

func (p *Plain) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
