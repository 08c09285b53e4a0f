package vm

import "testing"

func TestInstructionFields(tt *testing.T) {
	tt.Parallel()

	// ADD with op1 = register R1 and op2 = register R2 encodes as
	// 0x011112: opcode in the high half, then mode/reg nibbles.
	ir := Instruction(Encode(ADD, ModeRegister, 1, ModeRegister, 2))

	if Word(ir) != 0x011112 {
		tt.Errorf("encode: want %#x, got %#x", 0x011112, Word(ir))
	}

	if ir.Opcode() != ADD {
		tt.Errorf("opcode: want ADD, got %s", ir.Opcode())
	}

	if ir.Op1Mode() != ModeRegister || ir.Op1Reg() != 1 {
		tt.Errorf("op1: want REG/R1, got %s/R%d", ir.Op1Mode(), ir.Op1Reg())
	}

	if ir.Op2Mode() != ModeRegister || ir.Op2Reg() != 2 {
		tt.Errorf("op2: want REG/R2, got %s/R%d", ir.Op2Mode(), ir.Op2Reg())
	}
}

func TestInstructionDecode(tt *testing.T) {
	tt.Parallel()

	ir := Instruction(Encode(MOVE, ModeAutoDec, 7, ModeImmediate, 0))

	if ir.Opcode() != MOVE {
		tt.Errorf("opcode: want MOVE, got %s", ir.Opcode())
	}

	if ir.Op1Mode() != ModeAutoDec || ir.Op1Reg() != 7 {
		tt.Errorf("op1: want DEC/R7, got %s/R%d", ir.Op1Mode(), ir.Op1Reg())
	}

	if ir.Op2Mode() != ModeImmediate {
		tt.Errorf("op2 mode: want IMM, got %s", ir.Op2Mode())
	}
}
