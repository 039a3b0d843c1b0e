//go:build amd64 && (linux || darwin)

package cpu

import (
	"syscall"
	"unsafe"
)

// jitContext is the register file compiled blocks load on entry and
// store on exit. Field offsets must match the ctx* constants in the
// compiler.
type jitContext struct {
	a  uint8
	x  uint8
	y  uint8
	p  uint8
	sp uint8
	_  [3]uint8

	pc uint16
	_  [6]uint8

	cycle    uint64
	deadline uint64
	ram      uintptr
	exit     uint64
}

// jitcall jumps into compiled code with the context pointer in RBX.
// Implemented in jitcall_amd64.s.
func jitcall(code uintptr, ctx *jitContext)

// ExecutableBlock is one compiled basic block in executable memory.
type ExecutableBlock struct {
	code []byte
}

// newExecutableBlock copies generated code into a fresh executable
// mapping.
func newExecutableBlock(code []byte) *ExecutableBlock {
	size := (len(code) + syscall.Getpagesize() - 1) &^ (syscall.Getpagesize() - 1)
	mem, err := syscall.Mmap(-1, 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil
	}
	copy(mem, code)
	if err := syscall.Mprotect(mem, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(mem)
		return nil
	}
	return &ExecutableBlock{code: mem}
}

// Call runs the block until it exits, then applies the exit reason.
func (b *ExecutableBlock) Call(c *CPU) {
	deadline := c.PPU.RequestedRunCycle()
	if apuCyc := c.APU.RequestedRunCycle(); apuCyc < deadline {
		deadline = apuCyc
	}

	ctx := jitContext{
		a:        c.A,
		x:        c.X,
		y:        c.Y,
		p:        c.P,
		sp:       c.SP,
		pc:       c.PC,
		cycle:    c.cycle,
		deadline: deadline,
		ram:      uintptr(unsafe.Pointer(&c.RAM[0])),
	}

	jitcall(uintptr(unsafe.Pointer(&b.code[0])), &ctx)

	c.A = ctx.a
	c.X = ctx.x
	c.Y = ctx.y
	c.P = ctx.p
	c.SP = ctx.sp
	c.PC = ctx.pc
	c.cycle = ctx.cycle

	switch ctx.exit {
	case jitExitControlFlow, jitExitDeadline:
		// The scheduler resumes at the stored PC.
	case jitExitInterpret:
		// The faulting instruction runs through the interpreter; PC was
		// rewound and no cycles were charged.
		c.interpretOne()
	case jitExitHalt:
		c.halted = true
	}
}
