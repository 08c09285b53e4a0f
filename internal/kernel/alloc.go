package kernel

// alloc.go implements the paired first-fit allocators. Each pool is a
// singly-linked, address-sorted free list threaded through the RAM region
// it owns: cell[p] is the next block or EOL, cell[p+1] is the block size.

import "github.com/jatgam/jcsim/internal/vm"

// AllocUser carves size cells from the user pool and returns the base
// address, or ErrNoMemory.
func (k *Kernel) AllocUser(size Word) Word {
	return k.alloc(&k.userFree, size)
}

// FreeUser returns size cells at start to the user pool.
func (k *Kernel) FreeUser(start, size Word) Word {
	return k.free(&k.userFree, start, size)
}

// allocOS carves size cells from the kernel pool.
func (k *Kernel) allocOS(size Word) Word {
	return k.alloc(&k.osFree, size)
}

// freeOS returns size cells at start to the kernel pool.
func (k *Kernel) freeOS(start, size Word) Word {
	return k.free(&k.osFree, start, size)
}

// alloc finds the first block of at least size cells. An exact fit unlinks
// the block; a larger one is split, the remainder keeping the list node at
// its new base.
func (k *Kernel) alloc(head *Word, size Word) Word {
	ram := k.ram
	ptr, prev := *head, EOL

	for ptr != EOL && ram[ptr+1] < size {
		prev, ptr = ptr, ram[ptr]
	}

	if ptr == EOL {
		return vm.ErrNoMemory
	}

	if ram[ptr+1] == size {
		if prev == EOL {
			*head = ram[ptr]
		} else {
			ram[prev] = ram[ptr]
		}

		ram[ptr] = EOL

		return ptr
	}

	// Split: the remainder moves up by size and inherits the link.
	rest := ptr + size
	ram[rest] = ram[ptr]
	ram[rest+1] = ram[ptr+1] - size

	if prev == EOL {
		*head = rest
	} else {
		ram[prev] = rest
	}

	ram[ptr] = EOL

	return ptr
}

// free inserts the block in address order and coalesces with both
// neighbors when adjacent. Absorbed nodes have their header cells zeroed.
func (k *Kernel) free(head *Word, start, size Word) Word {
	ram := k.ram
	ptr, prev := *head, EOL

	for ptr != EOL && ptr < start {
		prev, ptr = ptr, ram[ptr]
	}

	if ptr != EOL && start+size == ptr {
		// Merge the successor into the new block.
		ram[start] = ram[ptr]
		ram[start+1] = size + ram[ptr+1]
		ram[ptr], ram[ptr+1] = 0, 0
	} else {
		ram[start] = ptr
		ram[start+1] = size
	}

	switch {
	case prev == EOL:
		*head = start
	case prev+ram[prev+1] == start:
		// Merge the new block into its predecessor.
		ram[prev+1] += ram[start+1]
		ram[prev] = ram[start]
		ram[start], ram[start+1] = 0, 0
	default:
		ram[prev] = start
	}

	return vm.StatusOK
}
