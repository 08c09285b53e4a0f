package kernel

// syscall.go is the system-call dispatch surface. The CPU enters here on
// the syscall opcode with the call id from the first operand; the kernel
// reads arguments from the GPRs, writes results back, and returns the
// scheduling verdict.

import "github.com/jatgam/jcsim/internal/vm"

// System-call ids.
const (
	SysTaskCreate  Word = 0
	SysTaskDelete  Word = 1
	SysTaskInquiry Word = 5
	SysMemAlloc    Word = 8
	SysMemFree     Word = 9
	SysMsgSend     Word = 12
	SysMsgReceive  Word = 13
	SysIOGetc      Word = 14
	SysIOPutc      Word = 15
	SysTimeGet     Word = 16
	SysTimeSet     Word = 17
)

// Syscall dispatches one system call. It runs with supervisor rights and
// drops them on the way out. The verdict is StatusOK to continue the
// caller, StatusWaiting to suspend it, StatusHalt to end it, or ErrSyscall
// for an unknown id.
func (k *Kernel) Syscall(id Word) Word {
	k.cpu.PSR = vm.SupervisorMode
	defer func() { k.cpu.PSR = vm.UserMode }()

	verdict := k.dispatchSyscall(id)

	k.log.Info("System call",
		"call", syscallName(id),
		"pid", int64(k.ram[k.running+pcbPID]),
		"verdict", vm.StatusName(verdict),
		"gpr0", int64(k.cpu.GPR[0]))

	return verdict
}

func (k *Kernel) dispatchSyscall(id Word) Word {
	cpu := k.cpu

	switch id {
	case SysTaskCreate:
		return k.taskCreate()

	case SysTaskDelete:
		return k.taskDelete()

	case SysTaskInquiry:
		cpu.GPR[1] = k.ram[k.running+pcbPID]
		cpu.GPR[2] = k.ram[k.running+pcbPriority]
		cpu.GPR[3] = k.ram[k.running+pcbState]
		cpu.GPR[0] = vm.StatusOK

		return vm.StatusOK

	case SysMemAlloc:
		ptr := k.AllocUser(cpu.GPR[2])
		if ptr < 0 {
			cpu.GPR[0] = ptr
		} else {
			cpu.GPR[1] = ptr
			cpu.GPR[0] = vm.StatusOK
		}

		return vm.StatusOK

	case SysMemFree:
		cpu.GPR[0] = k.FreeUser(cpu.GPR[1], cpu.GPR[2])
		return vm.StatusOK

	case SysMsgSend:
		return k.msgSend()

	case SysMsgReceive:
		return k.msgReceive()

	case SysIOGetc:
		k.ram[k.running+pcbWaitReason] = WaitingGet
		k.ram[k.running+pcbState] = StateWaiting

		return vm.StatusWaiting

	case SysIOPutc:
		k.ram[k.running+pcbWaitReason] = WaitingPut
		k.ram[k.running+pcbState] = StateWaiting

		return vm.StatusWaiting

	case SysTimeGet:
		cpu.GPR[1] = cpu.Clock
		cpu.GPR[0] = vm.StatusOK

		return vm.StatusOK

	case SysTimeSet:
		cpu.Clock = cpu.GPR[1]
		cpu.GPR[0] = vm.StatusOK

		return vm.StatusOK

	default:
		return vm.ErrSyscall
	}
}

// taskCreate builds a child process entered at the address in GPR3. The
// child shares the caller's loaded code; only a fresh PCB, message buffer,
// and stack are allocated. GPR2 receives the child PID.
func (k *Kernel) taskCreate() Word {
	cpu := k.cpu

	pcb := k.allocOS(pcbSize)
	if pcb < 0 {
		cpu.GPR[0] = vm.ErrNoMemory
		return vm.StatusOK
	}

	msgq := k.allocOS(msgQueueSize)
	if msgq < 0 {
		k.freeOS(pcb, pcbSize)
		cpu.GPR[0] = vm.ErrNoMemory

		return vm.StatusOK
	}

	stack := k.AllocUser(userStackSize)
	if stack < 0 {
		k.freeOS(msgq, msgQueueSize)
		k.freeOS(pcb, pcbSize)
		cpu.GPR[0] = vm.ErrNoMemory

		return vm.StatusOK
	}

	k.initPCB(pcb, cpu.GPR[3], DefaultPriority, msgq, stack, userStackSize)
	k.enqueue(&k.rq, pcb)

	cpu.GPR[2] = k.ram[pcb+pcbPID]
	cpu.GPR[0] = vm.StatusOK

	return vm.StatusOK
}

// taskDelete ends the process named by GPR1. PID zero, or the caller's own
// PID, halts the caller; a queued PID is terminated in place; anything
// else is ErrTaskID in GPR0.
func (k *Kernel) taskDelete() Word {
	pid := k.cpu.GPR[1]

	if pid == 0 {
		return vm.StatusHalt
	}

	if pid < 0 {
		k.cpu.GPR[0] = vm.ErrTaskID
		return vm.StatusOK
	}

	pcb := k.removePID(&k.wq, pid)
	if pcb == EOL {
		pcb = k.removePID(&k.rq, pid)
	}

	if pcb == EOL {
		if k.ram[k.running+pcbPID] == pid {
			return vm.StatusHalt
		}

		k.cpu.GPR[0] = vm.ErrTaskID

		return vm.StatusOK
	}

	k.terminate(pcb)
	k.cpu.GPR[0] = vm.StatusOK

	return vm.StatusOK
}

// msgSend appends the word in GPR2 to the message buffer of the process
// named by GPR1. Delivery does not wake a receiver that is already waiting
// on its buffer; only operator completions move processes out of the
// waiting queue.
func (k *Kernel) msgSend() Word {
	cpu := k.cpu

	target := k.findPID(cpu.GPR[1])
	if target == EOL {
		cpu.GPR[0] = vm.ErrTaskID
		return vm.StatusOK
	}

	buf := k.ram[target+pcbMsgQueue]
	count := k.ram[target+pcbMsgCount]
	k.ram[buf+count] = cpu.GPR[2]
	k.ram[target+pcbMsgCount] = count + 1
	k.ram[target+pcbGPR+2] = cpu.GPR[2] // message word in the target's saved GPR2
	cpu.GPR[0] = vm.StatusOK

	return vm.StatusOK
}

// msgReceive copies the first queued message word into GPR2, or suspends
// the caller until the operator intervenes. The buffer itself is left
// intact.
func (k *Kernel) msgReceive() Word {
	if k.ram[k.running+pcbMsgCount] == 0 {
		k.ram[k.running+pcbWaitReason] = WaitingMsg
		k.ram[k.running+pcbState] = StateWaiting

		return vm.StatusWaiting
	}

	buf := k.ram[k.running+pcbMsgQueue]
	k.cpu.GPR[2] = k.ram[buf]
	k.cpu.GPR[0] = vm.StatusOK

	return vm.StatusOK
}

func syscallName(id Word) string {
	switch id {
	case SysTaskCreate:
		return "task_create"
	case SysTaskDelete:
		return "task_delete"
	case SysTaskInquiry:
		return "task_inquiry"
	case SysMemAlloc:
		return "mem_alloc"
	case SysMemFree:
		return "mem_free"
	case SysMsgSend:
		return "msg_qsend"
	case SysMsgReceive:
		return "msg_qreceive"
	case SysIOGetc:
		return "io_getc"
	case SysIOPutc:
		return "io_putc"
	case SysTimeGet:
		return "time_get"
	case SysTimeSet:
		return "time_set"
	default:
		return "unknown"
	}
}
