package vm

import (
	"testing"
)

func TestAddRegisters(tt *testing.T) {
	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	t.load(cpu, Encode(ADD, ModeRegister, 1, ModeRegister, 2))
	cpu.GPR[1] = 5
	cpu.GPR[2] = 7

	t.fetch(cpu)

	if status := cpu.step(nil); status != statusContinue {
		t.Errorf("status: want continue, got %s", StatusName(status))
	}

	if cpu.GPR[2] != 12 {
		t.Errorf("R2: want 12, got %d", cpu.GPR[2])
	}

	if cpu.PC != 1 {
		t.Errorf("PC: want 1, got %d", cpu.PC)
	}

	if cpu.Clock != 3 {
		t.Errorf("clock: want 3, got %d", cpu.Clock)
	}
}

func TestArithmetic(tt *testing.T) {
	tt.Parallel()

	run := func(op Opcode, r1, r2, want Word) func(*testing.T) {
		return func(tt *testing.T) {
			var (
				t   = NewTestHarness(tt)
				cpu = t.Make()
			)

			t.load(cpu, Encode(op, ModeRegister, 1, ModeRegister, 2))
			cpu.GPR[1] = r1
			cpu.GPR[2] = r2

			t.fetch(cpu)

			if status := cpu.step(nil); status != statusContinue {
				t.Fatalf("status: %s", StatusName(status))
			}

			if cpu.GPR[2] != want {
				t.Errorf("R2: want %d, got %d", want, cpu.GPR[2])
			}
		}
	}

	// The second operand is the destination: SUB and DIV compute op2 ∘ op1.
	tt.Run("SUB", run(SUB, 5, 12, 7))
	tt.Run("MULT", run(MULT, 3, -4, -12))
	tt.Run("DIV", run(DIV, 2, 7, 3))
	tt.Run("DIV truncates toward zero", run(DIV, 2, -7, -3))
}

func TestDivideByZero(tt *testing.T) {
	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	t.load(cpu, Encode(DIV, ModeRegister, 1, ModeRegister, 2))
	cpu.GPR[1] = 0
	cpu.GPR[2] = 10

	if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrDivideByZero {
		t.Errorf("status: want ER_DIVBYZ, got %s", StatusName(status))
	}
}

func TestMoveStoresToMemory(tt *testing.T) {
	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	// MOVE R1 -> (R2): register deferred destination writes the cell.
	t.load(cpu, Encode(MOVE, ModeRegister, 1, ModeRegDeferred, 2))
	cpu.GPR[1] = 42
	cpu.GPR[2] = 5000

	t.fetch(cpu)

	if status := cpu.step(nil); status != statusContinue {
		t.Fatalf("status: %s", StatusName(status))
	}

	if got, _ := cpu.RAM.Load(5000); got != 42 {
		t.Errorf("cell 5000: want 42, got %d", got)
	}

	if cpu.Clock != 2 {
		t.Errorf("clock: want 2, got %d", cpu.Clock)
	}
}

func TestAddressingModes(tt *testing.T) {
	tt.Parallel()

	tt.Run("direct", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		// MOVE direct -> R2; the operand word follows the instruction.
		t.load(cpu, Encode(MOVE, ModeDirect, 0, ModeRegister, 2), 200)
		cpu.RAM.Store(200, 99)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.GPR[2] != 99 {
			t.Errorf("R2: want 99, got %d", cpu.GPR[2])
		}

		if cpu.PC != 2 {
			t.Errorf("PC: want 2, got %d", cpu.PC)
		}
	})

	tt.Run("immediate", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeImmediate, 0, ModeRegister, 2), 77)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.GPR[2] != 77 {
			t.Errorf("R2: want 77, got %d", cpu.GPR[2])
		}

		if cpu.PC != 2 {
			t.Errorf("PC: want 2, got %d", cpu.PC)
		}
	})

	tt.Run("auto-increment samples before the bump", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeAutoInc, 1, ModeRegister, 2))
		cpu.GPR[1] = 100
		cpu.RAM.Store(100, 55)
		cpu.RAM.Store(101, 56)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.GPR[2] != 55 {
			t.Errorf("R2: want 55, got %d", cpu.GPR[2])
		}

		if cpu.GPR[1] != 101 {
			t.Errorf("R1: want 101, got %d", cpu.GPR[1])
		}
	})

	tt.Run("auto-decrement bumps before the sample", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeAutoDec, 1, ModeRegister, 2))
		cpu.GPR[1] = 101
		cpu.RAM.Store(100, 77)
		cpu.RAM.Store(101, 78)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.GPR[2] != 77 {
			t.Errorf("R2: want 77, got %d", cpu.GPR[2])
		}

		if cpu.GPR[1] != 100 {
			t.Errorf("R1: want 100, got %d", cpu.GPR[1])
		}
	})

	tt.Run("register deferred", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeRegDeferred, 1, ModeRegister, 2))
		cpu.GPR[1] = 3333
		cpu.RAM.Store(3333, 11)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.GPR[2] != 11 {
			t.Errorf("R2: want 11, got %d", cpu.GPR[2])
		}
	})
}

func TestBranches(tt *testing.T) {
	tt.Parallel()

	tt.Run("BR", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(BR, 0, 0, 0, 0), 500)

		t.fetch(cpu)

		if status := cpu.step(nil); status != statusContinue {
			t.Fatalf("status: %s", StatusName(status))
		}

		if cpu.PC != 500 {
			t.Errorf("PC: want 500, got %d", cpu.PC)
		}

		if cpu.Clock != 2 {
			t.Errorf("clock: want 2, got %d", cpu.Clock)
		}
	})

	conditional := func(op Opcode, test Word, takenWant bool) func(*testing.T) {
		return func(tt *testing.T) {
			var (
				t   = NewTestHarness(tt)
				cpu = t.Make()
			)

			t.load(cpu, Encode(op, ModeRegister, 1, 0, 0), 500)
			cpu.GPR[1] = test

			t.fetch(cpu)

			if status := cpu.step(nil); status != statusContinue {
				t.Fatalf("status: %s", StatusName(status))
			}

			want := Word(2) // step past the target word
			if takenWant {
				want = 500
			}

			if cpu.PC != want {
				t.Errorf("PC: want %d, got %d", want, cpu.PC)
			}

			if cpu.Clock != cyclesCond {
				t.Errorf("clock: want %d, got %d", cyclesCond, cpu.Clock)
			}
		}
	}

	tt.Run("BRM taken", conditional(BRM, -1, true))
	tt.Run("BRM not taken", conditional(BRM, 0, false))
	tt.Run("BRP taken", conditional(BRP, 1, true))
	tt.Run("BRP not taken", conditional(BRP, -1, false))
	tt.Run("BRZ taken", conditional(BRZ, 0, true))
	tt.Run("BRZ not taken", conditional(BRZ, 5, false))
}

func TestHalt(tt *testing.T) {
	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	// A zeroed RAM is a halt at every address.
	if status := cpu.Execute(nil, DefaultTimeSlice); status != StatusOK {
		t.Errorf("status: want OK, got %s", StatusName(status))
	}

	if cpu.Clock != cyclesHalt {
		t.Errorf("clock: want %d, got %d", cyclesHalt, cpu.Clock)
	}
}

func TestTimeSlice(tt *testing.T) {
	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	// Branch-to-self burns two cycles per iteration forever.
	t.load(cpu, Encode(BR, 0, 0, 0, 0), 0)

	if status := cpu.Execute(nil, DefaultTimeSlice); status != StatusTimeSlice {
		t.Errorf("status: want TIMESLICE, got %s", StatusName(status))
	}

	if cpu.Clock < DefaultTimeSlice {
		t.Errorf("clock: want >= %d, got %d", DefaultTimeSlice, cpu.Clock)
	}
}

func TestSyscallVerdicts(tt *testing.T) {
	tt.Parallel()

	program := []Word{Encode(SYSCALL, ModeImmediate, 0, 0, 0), 14}

	tt.Run("waiting suspends", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, program...)

		handler := func(id Word) Word {
			if id != 14 {
				t.Errorf("syscall id: want 14, got %d", id)
			}

			return StatusWaiting
		}

		if status := cpu.Execute(handler, DefaultTimeSlice); status != StatusWaiting {
			t.Errorf("status: want WAITING, got %s", StatusName(status))
		}

		if cpu.Clock != cyclesSys {
			t.Errorf("clock: want %d, got %d", cyclesSys, cpu.Clock)
		}
	})

	tt.Run("halt ends the program", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, program...)

		handler := func(Word) Word { return StatusHalt }

		if status := cpu.Execute(handler, DefaultTimeSlice); status != StatusOK {
			t.Errorf("status: want OK, got %s", StatusName(status))
		}
	})

	tt.Run("error ends the program", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, program...)

		handler := func(Word) Word { return ErrSyscall }

		if status := cpu.Execute(handler, DefaultTimeSlice); status != ErrSyscall {
			t.Errorf("status: want ER_ISC, got %s", StatusName(status))
		}
	})

	tt.Run("ok continues", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		// Syscall, then the zeroed cell at 2 halts.
		t.load(cpu, program...)

		handler := func(Word) Word { return StatusOK }

		if status := cpu.Execute(handler, DefaultTimeSlice); status != StatusOK {
			t.Errorf("status: want OK, got %s", StatusName(status))
		}

		if cpu.Clock != cyclesSys+cyclesHalt {
			t.Errorf("clock: want %d, got %d", cyclesSys+cyclesHalt, cpu.Clock)
		}
	})
}

func TestExecuteFaults(tt *testing.T) {
	tt.Parallel()

	tt.Run("reserved opcodes", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(PUSH, 0, 0, 0, 0))

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrOpReserved {
			t.Errorf("PUSH: want ER_OPNOTIMP, got %s", StatusName(status))
		}

		cpu = t.Make()
		t.load(cpu, Encode(POP, 0, 0, 0, 0))

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrOpReserved {
			t.Errorf("POP: want ER_OPNOTIMP, got %s", StatusName(status))
		}
	})

	tt.Run("invalid opcode", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(Opcode(99), 0, 0, 0, 0))

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrOpcode {
			t.Errorf("status: want ER_INVALIDOP, got %s", StatusName(status))
		}
	})

	tt.Run("invalid mode", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, AddressMode(7), 0, ModeRegister, 2))

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrMode {
			t.Errorf("status: want ER_INVALIDMODE, got %s", StatusName(status))
		}
	})

	tt.Run("register out of range", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeRegister, 12, ModeRegister, 2))

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrMode {
			t.Errorf("status: want ER_INVALIDMODE, got %s", StatusName(status))
		}
	})

	tt.Run("operand address out of range", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		t.load(cpu, Encode(MOVE, ModeDirect, 0, ModeRegister, 2), 20000)

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrAddress {
			t.Errorf("status: want ER_INVALIDADDR, got %s", StatusName(status))
		}
	})

	tt.Run("PC out of range", func(tt *testing.T) {
		var (
			t   = NewTestHarness(tt)
			cpu = t.Make()
		)

		cpu.PC = RAMSize

		if status := cpu.Execute(nil, DefaultTimeSlice); status != ErrPC {
			t.Errorf("status: want ER_PC, got %s", StatusName(status))
		}
	})
}
