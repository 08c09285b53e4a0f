package kernel

// proc.go defines the process control block and the process life cycle.

import (
	"io"
	"strings"

	"github.com/jatgam/jcsim/internal/log"
	"github.com/jatgam/jcsim/internal/vm"
)

// PCB field offsets. The layout is a wire contract: memory dumps expose it
// and the tests assert on raw cells.
const (
	pcbNext       = 0  // next PCB in queue, or EOL
	pcbState      = 1  // StateExecuting, StateReady, StateWaiting
	pcbPriority   = 2  // smaller number schedules first
	pcbPID        = 3  //
	pcbWaitReason = 4  // WaitingMsg, WaitingGet, WaitingPut
	pcbGPR        = 5  // saved GPR0..GPR7, 8 cells
	pcbSP         = 13 // saved stack pointer
	pcbPC         = 14 // saved program counter
	pcbStackBase  = 15 // user-stack base, or EOL for the idle process
	pcbStackSize  = 16 //
	pcbMsgQueue   = 17 // message-buffer base in the kernel pool
	pcbMsgCap     = 18 // message-buffer capacity
	pcbMsgCount   = 19 // queued messages
	pcbSize       = 25 // cells per PCB; 20..24 reserved
)

// Process states stored at pcbState.
const (
	StateExecuting Word = 0
	StateReady     Word = 1
	StateWaiting   Word = 2
)

// Wait reasons stored at pcbWaitReason.
const (
	WaitingMsg Word = 2
	WaitingGet Word = 3
	WaitingPut Word = 4
)

// Process-creation defaults.
const (
	DefaultPriority Word = 127
	userStackSize   Word = 10
	msgQueueSize    Word = 10
)

// idleProgram is the boot image of the idle process: a halt at address
// zero, entered at zero.
const idleProgram = "0 0\n-1 0\n"

// CreateProcess loads a program and builds its process: a PCB and message
// buffer in the kernel pool, a stack in the user pool, and a ready-queue
// entry. The result is the new PID or a negative status; partial
// allocations are unwound on failure.
func (k *Kernel) CreateProcess(src io.Reader, priority Word) Word {
	pcb := k.allocOS(pcbSize)
	if pcb < 0 {
		return vm.ErrNoMemory
	}

	entry := k.loader.Load(src)
	if entry < 0 {
		k.freeOS(pcb, pcbSize)
		return entry
	}

	msgq := k.allocOS(msgQueueSize)
	if msgq < 0 {
		k.freeOS(pcb, pcbSize)
		return vm.ErrNoMemory
	}

	stack := k.AllocUser(userStackSize)
	if stack < 0 {
		k.freeOS(msgq, msgQueueSize)
		k.freeOS(pcb, pcbSize)

		return vm.ErrNoMemory
	}

	k.initPCB(pcb, entry, priority, msgq, stack, userStackSize)
	k.enqueue(&k.rq, pcb)

	k.log.Info("Process created",
		"pid", int64(k.ram[pcb+pcbPID]),
		"priority", int64(priority),
		"entry", int64(entry),
		"pcb", int64(pcb))

	return k.ram[pcb+pcbPID]
}

// createIdleProcess builds the boot idle process at priority zero. It owns
// no user stack, leaving the user pool untouched until the first real
// process arrives.
func (k *Kernel) createIdleProcess() Word {
	pcb := k.allocOS(pcbSize)
	if pcb < 0 {
		return vm.ErrNoMemory
	}

	entry := k.loader.Load(strings.NewReader(idleProgram))
	if entry < 0 {
		k.freeOS(pcb, pcbSize)
		return entry
	}

	msgq := k.allocOS(msgQueueSize)
	if msgq < 0 {
		k.freeOS(pcb, pcbSize)
		return vm.ErrNoMemory
	}

	k.initPCB(pcb, entry, 0, msgq, EOL, 0)
	k.enqueue(&k.rq, pcb)

	return k.ram[pcb+pcbPID]
}

// initPCB fills in a freshly allocated PCB. The allocator left pcbNext at
// EOL; every field from pcbState through pcbMsgCount is written, and the
// reserved cells are left as found.
func (k *Kernel) initPCB(pcb, entry, priority, msgq, stackBase, stackSize Word) {
	ram := k.ram

	ram[pcb+pcbState] = StateReady
	ram[pcb+pcbPriority] = priority
	ram[pcb+pcbPID] = k.nextPID
	k.nextPID++
	ram[pcb+pcbWaitReason] = 0

	for i := 0; i < vm.NumGPR; i++ {
		ram[pcb+pcbGPR+Word(i)] = 0
	}

	if stackSize > 0 {
		ram[pcb+pcbSP] = stackBase - 1 // empty stack
	} else {
		ram[pcb+pcbSP] = EOL
	}

	ram[pcb+pcbPC] = entry
	ram[pcb+pcbStackBase] = stackBase
	ram[pcb+pcbStackSize] = stackSize
	ram[pcb+pcbMsgQueue] = msgq
	ram[pcb+pcbMsgCap] = msgQueueSize
	ram[pcb+pcbMsgCount] = 0
}

// terminate releases everything a process owns: its stack, its message
// buffer, and the PCB itself.
func (k *Kernel) terminate(pcb Word) {
	ram := k.ram

	k.log.Info("Process terminated", "pid", int64(ram[pcb+pcbPID]), "pcb", int64(pcb))

	if ram[pcb+pcbStackSize] > 0 {
		k.FreeUser(ram[pcb+pcbStackBase], ram[pcb+pcbStackSize])
	}

	k.freeOS(ram[pcb+pcbMsgQueue], msgQueueSize)
	k.freeOS(pcb, pcbSize)
}

// dispatch restores a PCB's saved context into the CPU and marks the
// process executing.
func (k *Kernel) dispatch(pcb Word) {
	ram := k.ram

	for i := 0; i < vm.NumGPR; i++ {
		k.cpu.GPR[i] = ram[pcb+pcbGPR+Word(i)]
	}

	k.cpu.SP = ram[pcb+pcbSP]
	k.cpu.PC = ram[pcb+pcbPC]
	ram[pcb+pcbState] = StateExecuting
}

// saveContext stores the CPU registers back into a PCB.
func (k *Kernel) saveContext(pcb Word) {
	ram := k.ram

	for i := 0; i < vm.NumGPR; i++ {
		ram[pcb+pcbGPR+Word(i)] = k.cpu.GPR[i]
	}

	ram[pcb+pcbSP] = k.cpu.SP
	ram[pcb+pcbPC] = k.cpu.PC
}

// pcbLogValue summarizes a PCB for structured logs.
func (k *Kernel) pcbLogValue(pcb Word) log.Value {
	return log.GroupValue(
		log.Int64("PID", int64(k.ram[pcb+pcbPID])),
		log.Int64("PRI", int64(k.ram[pcb+pcbPriority])),
		log.Int64("STATE", int64(k.ram[pcb+pcbState])),
		log.Int64("PC", int64(k.ram[pcb+pcbPC])),
	)
}
