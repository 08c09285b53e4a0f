package kernel

import (
	"io"
	"strings"
	"testing"

	"github.com/jatgam/jcsim/internal/log"
	"github.com/jatgam/jcsim/internal/vm"
)

// NewTestHarness builds a freshly booted kernel per scenario: clean RAM, no
// disk, and the idle process queued.
func NewTestHarness(t *testing.T, opts ...Option) *testHarness {
	t.Parallel()

	th := &testHarness{T: t}

	cpu := vm.New(&vm.RAM{}, th.Logger())
	opts = append([]Option{WithLogger(th.Logger())}, opts...)
	th.k = New(cpu, nil, opts...)

	if err := th.k.Boot(); err != nil {
		t.Fatal(err)
	}

	return th
}

type testHarness struct {
	*testing.T
	k *Kernel
}

func (t *testHarness) Logger() *log.Logger {
	return log.NewFormattedLogger(t)
}

func (t *testHarness) Write(b []byte) (int, error) {
	t.T.Helper()
	t.T.Log(strings.TrimRight(string(b), "\n"))

	return len(b), nil
}

// dispatchHead pops the ready queue and makes its process the running one.
func (t *testHarness) dispatchHead() Word {
	t.Helper()

	pcb := t.k.dequeue(&t.k.rq)
	if pcb == EOL {
		t.Fatal("ready queue empty")
	}

	t.k.dispatch(pcb)
	t.k.running = pcb

	return pcb
}

// create loads a trivial program and creates its process.
func (t *testHarness) create(priority Word) Word {
	t.Helper()

	pid := t.k.CreateProcess(strings.NewReader("0 0\n-1 0\n"), priority)
	if pid < 0 {
		t.Fatalf("create: %s", vm.StatusName(pid))
	}

	return pid
}

// newProgramReader wraps program text for CreateProcess.
func newProgramReader(text string) io.Reader {
	return strings.NewReader(text)
}

// block describes one free-list node.
type block struct {
	addr, size Word
}

// freeBlocks walks a free list from head.
func (t *testHarness) freeBlocks(head Word) []block {
	t.Helper()

	var blocks []block

	for ptr := head; ptr != EOL; ptr = t.k.ram[ptr] {
		blocks = append(blocks, block{addr: ptr, size: t.k.ram[ptr+1]})

		if len(blocks) > vm.RAMSize {
			t.Fatal("free list does not terminate")
		}
	}

	return blocks
}

// checkPool asserts the free-list invariants: ascending disjoint blocks,
// no uncoalesced neighbors, and conservation of the pool's cells given the
// live allocation total.
func (t *testHarness) checkPool(name string, head, capacity, live Word) {
	t.Helper()

	blocks := t.freeBlocks(head)
	free := Word(0)

	for i, b := range blocks {
		free += b.size

		if b.size < 2 {
			t.Errorf("%s: block %d at %d has size %d", name, i, b.addr, b.size)
		}

		if i == 0 {
			continue
		}

		prev := blocks[i-1]

		if prev.addr >= b.addr {
			t.Errorf("%s: blocks out of order: %d then %d", name, prev.addr, b.addr)
		}

		if prev.addr+prev.size >= b.addr {
			t.Errorf("%s: blocks touch: [%d,%d) then %d", name, prev.addr, prev.addr+prev.size, b.addr)
		}
	}

	if free+live != capacity {
		t.Errorf("%s: conservation: free %d + live %d != capacity %d", name, free, live, capacity)
	}
}

// queuePIDs walks a queue collecting PIDs in order.
func (t *testHarness) queuePIDs(head Word) []Word {
	t.Helper()

	var pids []Word

	for ptr := head; ptr != EOL; ptr = t.k.ram[ptr] {
		pids = append(pids, t.k.ram[ptr+pcbPID])
	}

	return pids
}

// scriptConsole feeds the scheduler a fixed operator script. Exhausting
// the script ends the run with io.EOF.
type scriptConsole struct {
	interrupts []Word
	pids       []Word
	chars      []rune
	programs   []string

	output []rune
}

func (c *scriptConsole) PollInterrupt() (Word, error) {
	if len(c.interrupts) == 0 {
		return EOL, io.EOF
	}

	id := c.interrupts[0]
	c.interrupts = c.interrupts[1:]

	return id, nil
}

func (c *scriptConsole) RequestPID(string) (Word, error) {
	if len(c.pids) == 0 {
		return EOL, io.EOF
	}

	pid := c.pids[0]
	c.pids = c.pids[1:]

	return pid, nil
}

func (c *scriptConsole) ReadChar() (rune, error) {
	if len(c.chars) == 0 {
		return 0, io.EOF
	}

	ch := c.chars[0]
	c.chars = c.chars[1:]

	return ch, nil
}

func (c *scriptConsole) WriteChar(ch rune) error {
	c.output = append(c.output, ch)
	return nil
}

func (c *scriptConsole) PickProgram() (string, error) {
	if len(c.programs) == 0 {
		return "", io.EOF
	}

	name := c.programs[0]
	c.programs = c.programs[1:]

	return name, nil
}
