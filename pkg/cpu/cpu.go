package cpu

import (
	"fmt"

	"github.com/famigo/pkg/apu"
	"github.com/famigo/pkg/input"
	"github.com/famigo/pkg/mapper"
	"github.com/famigo/pkg/ppu"
)

// Interrupt vectors
const (
	NMIVector   uint16 = 0xFFFA
	ResetVector uint16 = 0xFFFC
	IRQVector   uint16 = 0xFFFE

	stackPage uint16 = 0x0100
)

// Status flag bits
const (
	FlagC = 1 << 0 // Carry
	FlagZ = 1 << 1 // Zero
	FlagI = 1 << 2 // Suppress IRQ
	FlagD = 1 << 3 // Decimal (inert on the 2A03, but settable)
	FlagB = 1 << 4 // Break (exists only on the stack)
	FlagU = 1 << 5 // Unused, always 1
	FlagV = 1 << 6 // Overflow
	FlagS = 1 << 7 // Sign
)

// CPU is the 6502 core and the system bus. It owns the PPU, APU,
// cartridge mapper, controller port and JIT dispatcher, and drives the
// master clock: devices are run up to the CPU cycle before any access
// that could observe them.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	P  uint8
	SP uint8
	PC uint16

	RAM [0x800]uint8

	PPU  *ppu.PPU
	APU  *apu.APU
	IO   input.IO
	Cart mapper.Mapper

	Dispatcher *Dispatcher

	cycle    uint64
	halted   bool
	ioStrobe bool

	// JIT enables the block dispatcher for PRG ROM addresses on hosts
	// that support it.
	JIT bool

	// TraceCPU prints one nestest-style line per interpreted instruction.
	TraceCPU bool
}

// New assembles a CPU around its devices.
func New(p *ppu.PPU, a *apu.APU, io input.IO, cart mapper.Mapper) *CPU {
	c := &CPU{
		P:    FlagI | FlagU,
		SP:   0xFD,
		PPU:  p,
		APU:  a,
		IO:   io,
		Cart: cart,
	}
	c.Dispatcher = NewDispatcher()
	cart.SetBankChangeHook(c.Dispatcher.InvalidateAll)
	return c
}

// Init loads the entry point. The nestest harness runs with the $C000
// override; resetToVector follows the documented $FFFC vector instead.
func (c *CPU) Init(resetToVector bool) {
	if resetToVector {
		c.PC = c.readW(ResetVector)
	} else {
		c.PC = 0xC000
	}
}

// Halted reports whether a KIL opcode stopped the machine.
func (c *CPU) Halted() bool {
	return c.halted
}

// Cycle returns the master cycle counter.
func (c *CPU) Cycle() uint64 {
	return c.cycle
}

// RunFrame steps until the PPU's frame counter advances or the CPU
// halts.
func (c *CPU) RunFrame() {
	frame := c.PPU.Frame()
	for frame == c.PPU.Frame() && !c.halted {
		c.Step()
	}
}

// Step runs one instruction (or one compiled block), synchronizing the
// PPU and APU at their demanded cycles first. Interrupts are sampled
// here, between instructions.
func (c *CPU) Step() {
	if c.halted {
		return
	}

	if c.APU.RequestedRunCycle() <= c.cycle {
		c.runAPU()
	}
	if c.PPU.RequestedRunCycle() <= c.cycle {
		c.runPPU()
	}

	if c.JIT && c.PC >= 0x8000 {
		c.Dispatcher.Jump(c)
		return
	}

	c.interpretOne()
}

// interpretOne decodes and executes a single instruction.
func (c *CPU) interpretOne() {
	if c.TraceCPU {
		c.trace()
	}
	opcode := c.loadIncrPC()
	c.cycle += cycleTable[opcode]
	c.execute(opcode)
}

func (c *CPU) runAPU() {
	if c.APU.RunTo(c.cycle) {
		c.irq()
	}
}

func (c *CPU) runPPU() {
	if c.PPU.RunTo(c.cycle) == ppu.StepNMI {
		c.nmi()
	}
}

// nmi pushes PC and P (Break clear) and jumps through $FFFA.
func (c *CPU) nmi() {
	target := c.readW(NMIVector)
	c.stackPushW(c.PC)
	c.stackPush(c.P)
	c.PC = target
}

// irq is ignored while I is set; otherwise it pushes PC and P and jumps
// through $FFFE with I set.
func (c *CPU) irq() {
	if c.P&FlagI != 0 {
		return
	}
	target := c.readW(IRQVector)
	c.stackPushW(c.PC)
	c.stackPush(c.P)
	c.P |= FlagI
	c.PC = target
}

// Read routes a bus read, running the owning device to the current
// cycle first so side effects land in order.
func (c *CPU) Read(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return c.RAM[addr&0x07FF]
	case addr < 0x4000:
		c.runPPU()
		return c.PPU.ReadRegister(addr)
	case addr == 0x4015:
		irq, value := c.APU.ReadStatus(c.cycle)
		if irq {
			c.irq()
		}
		return value
	case addr == 0x4016 || addr == 0x4017:
		if c.ioStrobe {
			c.IO.Poll()
		}
		return c.IO.Read(addr)
	case addr < 0x4020:
		// Open bus for the write-only APU ports and $4014.
		return 0
	default:
		return c.Cart.ReadPRG(addr)
	}
}

// Write routes a bus write with the same run-to discipline.
func (c *CPU) Write(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		c.RAM[addr&0x07FF] = value
	case addr < 0x4000:
		c.runPPU()
		c.PPU.WriteRegister(addr, value)
	case addr == 0x4014:
		c.runPPU()
		c.dmaTransfer(value)
	case addr == 0x4016:
		c.ioStrobe = value&0x01 != 0
		c.IO.Write(addr, value)
		if c.ioStrobe {
			c.IO.Poll()
		}
	case addr < 0x4020:
		c.runAPU()
		c.APU.Write(addr, value)
	default:
		c.Cart.WritePRG(addr, value)
	}
}

// dmaTransfer copies one page into OAM through $2004, stalling the CPU
// for 513 cycles, or 514 when the write lands on an odd cycle.
func (c *CPU) dmaTransfer(page uint8) {
	if c.cycle%2 == 1 {
		c.cycle++
	}
	c.cycle += 513

	base := uint16(page) << 8
	for i := uint16(0); i < 0x0100; i++ {
		c.PPU.WriteRegister(0x2004, c.Read(base|i))
	}
}

func (c *CPU) readW(addr uint16) uint16 {
	lo := uint16(c.Read(addr))
	hi := uint16(c.Read(addr + 1))
	return hi<<8 | lo
}

// readWSamePage reads a word without crossing the page boundary,
// preserving the JMP (indirect) hardware bug.
func (c *CPU) readWSamePage(addr uint16) uint16 {
	page := addr & 0xFF00
	lo := uint16(c.Read(addr))
	hi := uint16(c.Read(page | uint16(uint8(addr)+1)))
	return hi<<8 | lo
}

// readWZeroPage reads a pointer from zero page with 8-bit wrap on the
// high byte.
func (c *CPU) readWZeroPage(zpIdx uint8) uint16 {
	lo := uint16(c.Read(uint16(zpIdx)))
	hi := uint16(c.Read(uint16(zpIdx + 1)))
	return hi<<8 | lo
}

func (c *CPU) loadIncrPC() uint8 {
	value := c.Read(c.PC)
	c.PC++
	return value
}

func (c *CPU) loadWIncrPC() uint16 {
	value := c.readW(c.PC)
	c.PC += 2
	return value
}

// Stack operations

func (c *CPU) stackPush(value uint8) {
	c.Write(stackPage|uint16(c.SP), value)
	c.SP--
}

func (c *CPU) stackPushW(value uint16) {
	c.stackPush(uint8(value >> 8))
	c.stackPush(uint8(value))
}

func (c *CPU) stackPop() uint8 {
	c.SP++
	return c.Read(stackPage | uint16(c.SP))
}

func (c *CPU) stackPopW() uint16 {
	lo := uint16(c.stackPop())
	hi := uint16(c.stackPop())
	return hi<<8 | lo
}

// Flag helpers

func (c *CPU) setFlag(flag uint8, on bool) {
	if on {
		c.P |= flag
	} else {
		c.P &^= flag
	}
}

func (c *CPU) setSignZero(value uint8) uint8 {
	c.setFlag(FlagS, value&0x80 != 0)
	c.setFlag(FlagZ, value == 0)
	return value
}

// unsupportedOpcode aborts on an opcode outside the supported set.
func (c *CPU) unsupportedOpcode(opcode uint8) {
	panic(fmt.Sprintf("unknown or unsupported opcode $%02X at PC=$%04X cycle=%d",
		opcode, c.PC-1, c.cycle))
}
