package vm

// cpu.go defines the processor's registers and construction.

import (
	"fmt"
	"strings"

	"github.com/jatgam/jcsim/internal/log"
)

// NumGPR is the count of general-purpose registers.
const NumGPR = 8

// Processor modes held in PSR.
const (
	UserMode       Word = 0
	SupervisorMode Word = 1
)

// CPU is the machine's processor: a register file, the special-purpose
// registers, and a cycle clock, all operating on one shared RAM.
type CPU struct {
	GPR   [NumGPR]Word // General-purpose registers.
	SP    Word         // Stack pointer.
	PC    Word         // Program counter.
	IR    Instruction  // Instruction register.
	PSR   Word         // Processor status: user or supervisor.
	Clock Word         // Accumulated cycles.

	RAM *RAM

	log *log.Logger
}

// New creates a CPU attached to ram.
func New(ram *RAM, logger *log.Logger) *CPU {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	cpu := CPU{
		RAM: ram,
		log: logger,
	}
	cpu.Reset()

	return &cpu
}

// Reset returns every register to its power-on value. The supervisor owns
// the processor until the first dispatch.
func (cpu *CPU) Reset() {
	cpu.GPR = [NumGPR]Word{}
	cpu.SP = 0
	cpu.PC = 0
	cpu.IR = 0
	cpu.PSR = SupervisorMode
	cpu.Clock = 0
}

func (cpu *CPU) String() string {
	b := strings.Builder{}

	for i, r := range cpu.GPR {
		fmt.Fprintf(&b, "R%d: %d ", i, r)
	}

	fmt.Fprintf(&b, "\nSP: %d PC: %d IR: %#x PSR: %d CLK: %d",
		cpu.SP, cpu.PC, Word(cpu.IR), cpu.PSR, cpu.Clock)

	return b.String()
}

// LogValue summarizes the register file for structured logs.
func (cpu *CPU) LogValue() log.Value {
	return log.GroupValue(
		log.Int64("R0", int64(cpu.GPR[0])),
		log.Int64("R1", int64(cpu.GPR[1])),
		log.Int64("R2", int64(cpu.GPR[2])),
		log.Int64("R3", int64(cpu.GPR[3])),
		log.Int64("SP", int64(cpu.SP)),
		log.Int64("PC", int64(cpu.PC)),
		log.Int64("CLK", int64(cpu.Clock)),
	)
}
