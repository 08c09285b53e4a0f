package kernel

// sched.go is the operating-system loop: poll the operator, dispatch the
// head of the ready queue, run one timeslice, post-process the verdict.

import (
	"context"
	"errors"
	"os"

	"github.com/jatgam/jcsim/internal/vm"
)

// Run drives the scheduler until the operator shuts the system down or the
// context is cancelled. Boot must have succeeded first.
func (k *Kernel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := k.serviceOperator(); err != nil {
			if errors.Is(err, ErrShutdown) {
				return nil
			}

			return err
		}

		pcb := k.dequeue(&k.rq)
		if pcb == EOL {
			// Nothing runnable; back to the operator.
			continue
		}

		k.dispatch(pcb)
		k.running = pcb

		k.log.Debug("dispatched", "proc", k.pcbLogValue(pcb))
		k.traceState()

		k.cpu.PSR = vm.UserMode
		status := k.cpu.Execute(k.Syscall, k.timeslice)
		k.cpu.PSR = vm.SupervisorMode

		switch status {
		case vm.StatusTimeSlice:
			k.saveContext(pcb)
			k.ram[pcb+pcbState] = StateReady
			k.enqueue(&k.rq, pcb)

		case vm.StatusWaiting:
			k.saveContext(pcb)
			k.enqueue(&k.wq, pcb)

		default:
			// Halt, or an error that ends the process.
			if status < 0 {
				k.log.Warn("process failed",
					"pid", int64(k.ram[pcb+pcbPID]),
					"status", vm.StatusName(status))
			}

			k.terminate(pcb)
		}

		k.running = EOL
	}
}

// serviceOperator polls the console for one interrupt and services it.
// Interrupt-level failures are logged and swallowed; only console I/O
// errors and shutdown escape.
func (k *Kernel) serviceOperator() error {
	if k.cons == nil {
		return nil
	}

	id, err := k.cons.PollInterrupt()
	if err != nil {
		return err
	}

	switch id {
	case IntNone:
		return nil

	case IntInput:
		return k.completeIO(WaitingGet)

	case IntOutput:
		return k.completeIO(WaitingPut)

	case IntRun:
		name, err := k.cons.PickProgram()
		if err != nil {
			return err
		}

		if status := k.runProgram(name); status < 0 {
			k.log.Error("run program failed", "file", name, "status", vm.StatusName(status))
		}

		return nil

	case IntShutdown:
		k.shutdown()
		return ErrShutdown

	default:
		k.log.Error("invalid interrupt", "id", int64(id), "status", vm.StatusName(vm.ErrInterrupt))
		return nil
	}
}

// completeIO finishes a suspended io_getc or io_putc: the named process
// leaves the waiting queue, its saved registers carry the result, and it
// rejoins the tail of its priority band in the ready queue.
func (k *Kernel) completeIO(reason Word) error {
	prompt := "input"
	if reason == WaitingPut {
		prompt = "output"
	}

	pid, err := k.cons.RequestPID(prompt)
	if err != nil {
		return err
	}

	pcb := k.removePID(&k.wq, pid)
	if pcb == EOL {
		k.log.Error("no waiting process", "pid", int64(pid), "status", vm.StatusName(vm.ErrTaskID))
		return nil
	}

	if reason == WaitingGet {
		ch, err := k.cons.ReadChar()
		if err != nil {
			return err
		}

		k.ram[pcb+pcbGPR+1] = Word(ch)
	} else {
		if err := k.cons.WriteChar(rune(k.ram[pcb+pcbGPR+1])); err != nil {
			return err
		}
	}

	k.ram[pcb+pcbGPR] = vm.StatusOK
	k.ram[pcb+pcbState] = StateReady
	k.enqueue(&k.rq, pcb)

	k.log.Info("I/O completed", "pid", int64(pid), "proc", k.pcbLogValue(pcb))

	return nil
}

// runProgram loads a program file and creates its process at the default
// priority.
func (k *Kernel) runProgram(name string) Word {
	f, err := os.Open(name)
	if err != nil {
		return vm.ErrFileOpen
	}
	defer f.Close()

	return k.CreateProcess(f, DefaultPriority)
}

// shutdown terminates every queued process and flushes the disk. The
// running pointer is already clear: the operator is only polled between
// dispatches.
func (k *Kernel) shutdown() {
	for k.rq != EOL {
		k.terminate(k.dequeue(&k.rq))
	}

	for k.wq != EOL {
		k.terminate(k.dequeue(&k.wq))
	}

	if k.disk != nil {
		if err := k.disk.Sync(); err != nil {
			k.log.Error("disk sync failed", "err", err)
		}
	}

	k.log.Info("System shutting down")
}

// traceState writes the scheduling-round dumps when tracing is enabled.
func (k *Kernel) traceState() {
	if k.trace == nil {
		return
	}

	k.DumpQueue(k.trace, "RQ", k.rq)
	k.DumpQueue(k.trace, "WQ", k.wq)

	if k.running != EOL {
		k.DumpPCB(k.trace, k.running)
	}

	k.DumpMemory(k.trace, "User dynamic area", vm.UserBase, vm.UserBase+100)
}
