// Package kernel implements the operating system of the simulator: the
// region-based memory pools, the process control blocks and their queues,
// the system-call surface, and the operator-driven scheduler. All kernel
// state beyond the struct fields below lives inside the machine's RAM,
// threaded through integer cell addresses.
package kernel

import (
	"errors"
	"io"

	"github.com/jatgam/jcsim/internal/log"
	"github.com/jatgam/jcsim/internal/vm"
)

// Word aliases the machine word to reduce symbol stutter.
type Word = vm.Word

// EOL is the machine's end-of-list sentinel.
const EOL = vm.EOL

// ErrShutdown is returned through the operator loop when the operator
// requests shutdown. Run swallows it and exits cleanly.
var ErrShutdown = errors.New("shutdown requested")

// Console is the operator's front panel. The scheduler blocks on it between
// dispatches; completions for suspended I/O arrive only through it.
type Console interface {
	// PollInterrupt prompts for an interrupt id. Ids outside 0..4 are
	// rejected by the kernel; implementations may pass through whatever the
	// operator typed.
	PollInterrupt() (Word, error)

	// RequestPID prompts for the process the operator is completing.
	RequestPID(reason string) (Word, error)

	// ReadChar reads one character for an input completion.
	ReadChar() (rune, error)

	// WriteChar displays one character for an output completion.
	WriteChar(ch rune) error

	// PickProgram names a program file to load and run.
	PickProgram() (string, error)
}

// Operator interrupt ids.
const (
	IntNone     Word = 0
	IntInput    Word = 1
	IntOutput   Word = 2
	IntRun      Word = 3
	IntShutdown Word = 4
)

// Kernel owns the machine and every operating-system singleton: the two
// free-list heads, the PID counter, the ready and waiting queues, and the
// running-process pointer.
type Kernel struct {
	cpu    *vm.CPU
	ram    []Word // arena view of the machine's RAM
	disk   *vm.Disk
	loader *vm.Loader

	userFree Word // user-pool free-list head
	osFree   Word // kernel-pool free-list head
	nextPID  Word
	rq       Word // ready-queue head
	wq       Word // waiting-queue head
	running  Word // running PCB, or EOL

	timeslice Word
	cons      Console
	trace     io.Writer
	log       *log.Logger
}

// Option configures a kernel at construction.
type Option func(*Kernel)

// WithConsole attaches the operator console.
func WithConsole(c Console) Option {
	return func(k *Kernel) { k.cons = c }
}

// WithTimeSlice overrides the dispatch timeslice.
func WithTimeSlice(cycles Word) Option {
	return func(k *Kernel) { k.timeslice = cycles }
}

// WithTrace directs memory, PCB, and queue dumps to out on every dispatch,
// before the dispatched process runs.
func WithTrace(out io.Writer) Option {
	return func(k *Kernel) { k.trace = out }
}

// WithLogger overrides the kernel's logger.
func WithLogger(logger *log.Logger) Option {
	return func(k *Kernel) { k.log = logger }
}

// New assembles a kernel around a CPU and disk. Call Boot before Run.
func New(cpu *vm.CPU, disk *vm.Disk, opts ...Option) *Kernel {
	k := Kernel{
		cpu:       cpu,
		ram:       cpu.RAM.Cells(),
		disk:      disk,
		userFree:  EOL,
		osFree:    EOL,
		rq:        EOL,
		wq:        EOL,
		running:   EOL,
		timeslice: vm.DefaultTimeSlice,
		log:       log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(&k)
	}

	k.loader = vm.NewLoader(cpu.RAM, k.log)

	return &k
}

// Boot resets the machine, formats or verifies the disk, initializes the
// memory pools, and creates the idle process.
func (k *Kernel) Boot() error {
	k.cpu.Reset()
	k.cpu.RAM.Reset()

	if err := k.checkDisk(); err != nil {
		return err
	}

	// One free block spans each pool.
	k.userFree = vm.UserBase
	k.ram[vm.UserBase] = EOL
	k.ram[vm.UserBase+1] = vm.UserPoolSize

	k.osFree = vm.KernelBase
	k.ram[vm.KernelBase] = EOL
	k.ram[vm.KernelBase+1] = vm.KernelPoolSize

	k.nextPID = 0
	k.rq, k.wq, k.running = EOL, EOL, EOL

	if status := k.createIdleProcess(); status < 0 {
		k.log.Error("idle process creation failed", "status", vm.StatusName(status))
		return errors.New("boot: cannot create idle process")
	}

	k.log.Info("Booted", "timeslice", int64(k.timeslice))

	return nil
}

// checkDisk formats a blank disk or verifies the partition of a used one.
// A foreign partition type is fatal.
func (k *Kernel) checkDisk() error {
	if k.disk == nil {
		return nil
	}

	if !k.disk.Formatted() {
		k.log.Info("Disk not formatted, proceeding with format")
		k.disk.Format()

		return k.disk.Sync()
	}

	return k.disk.Verify()
}

// Running returns the PCB address of the running process, or EOL.
func (k *Kernel) Running() Word {
	return k.running
}

// Clock returns the machine's cycle clock.
func (k *Kernel) Clock() Word {
	return k.cpu.Clock
}
