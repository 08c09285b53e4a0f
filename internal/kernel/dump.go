package kernel

// dump.go renders kernel state for the trace writer. The column layout
// matches the classic ten-cells-per-row dump so addresses line up with the
// PCB offsets and free-list headers documented in the wire contract.

import (
	"fmt"
	"io"
)

// DumpMemory writes the registers, the RAM cells in [start, end), and the
// clock in rows of ten.
func (k *Kernel) DumpMemory(w io.Writer, title string, start, end Word) {
	fmt.Fprintf(w, "----------------------------------------\n%s\n", title)
	fmt.Fprint(w, "GPRs:\t")

	for _, r := range k.cpu.GPR {
		fmt.Fprintf(w, "%d\t", r)
	}

	fmt.Fprintf(w, "%d\t%d\n", k.cpu.SP, k.cpu.PC)
	fmt.Fprint(w, "Address:+0\t+1\t+2\t+3\t+4\t+5\t+6\t+7\t+8\t+9\n")

	for row := start - start%10; row < end; row += 10 {
		fmt.Fprintf(w, "%d\t", row)

		for col := Word(0); col < 10; col++ {
			fmt.Fprintf(w, "%d\t", k.ram[row+col])
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Clock = %d\nPSR: %d\n----------------------------------------\n",
		k.cpu.Clock, k.cpu.PSR)
}

// DumpPCB writes one control block's cells.
func (k *Kernel) DumpPCB(w io.Writer, pcb Word) {
	fmt.Fprintf(w, "PCB %d (PID %d):", pcb, k.ram[pcb+pcbPID])

	for i := Word(0); i < pcbSize; i++ {
		if i%10 == 0 {
			fmt.Fprintf(w, "\n%d:\t", pcb+i)
		}

		fmt.Fprintf(w, "%d\t", k.ram[pcb+i])
	}

	fmt.Fprintln(w)
}

// DumpQueue walks a queue and writes each control block.
func (k *Kernel) DumpQueue(w io.Writer, name string, head Word) {
	if head == EOL {
		fmt.Fprintf(w, "%s is empty.\n", name)
		return
	}

	fmt.Fprintf(w, "%s:\n", name)

	for ptr := head; ptr != EOL; ptr = k.ram[ptr] {
		k.DumpPCB(w, ptr)
	}
}
