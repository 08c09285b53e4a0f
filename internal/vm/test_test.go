package vm

import (
	"strings"
	"testing"

	"github.com/jatgam/jcsim/internal/log"
)

// NewTestHarness wires a CPU and RAM to the test log.
func NewTestHarness(t *testing.T) *testHarness {
	t.Parallel()

	return &testHarness{T: t}
}

type testHarness struct {
	*testing.T
}

func (t *testHarness) Make() *CPU {
	return New(&RAM{}, t.Logger())
}

func (t *testHarness) Logger() *log.Logger {
	return log.NewFormattedLogger(t)
}

// Write forwards log output to the test log.
func (t *testHarness) Write(b []byte) (int, error) {
	t.T.Helper()
	t.T.Log(strings.TrimRight(string(b), "\n"))

	return len(b), nil
}

// load stores a program's words starting at address zero.
func (t *testHarness) load(cpu *CPU, words ...Word) {
	for i, w := range words {
		if !cpu.RAM.Store(Word(i), w) {
			t.Fatalf("load: address %d out of range", i)
		}
	}
}

// fetch performs the loop's instruction fetch so a single instruction can
// be stepped in isolation.
func (t *testHarness) fetch(cpu *CPU) {
	word, ok := cpu.RAM.Load(cpu.PC)
	if !ok {
		t.Fatalf("fetch: PC %d out of range", cpu.PC)
	}

	cpu.IR = Instruction(word)
	cpu.PC++
}
