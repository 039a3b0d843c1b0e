package cpu

import (
	"fmt"
	"strings"

	"github.com/famigo/pkg/logger"
)

// Opcode is one disassembled instruction.
type Opcode struct {
	Address    uint16
	Bytes      []uint8
	Str        string
	Unofficial bool
}

// Disassembler decodes instructions for trace output without touching
// CPU state. Reads go through readSafe so MMIO is never disturbed.
type Disassembler struct {
	cpu *CPU
	pc  uint16
}

// NewDisassembler starts decoding at the CPU's current PC.
func NewDisassembler(c *CPU) *Disassembler {
	return &Disassembler{cpu: c, pc: c.PC}
}

// readSafe reads code bytes without side effects; register windows
// decode as $FF.
func (d *Disassembler) readSafe(addr uint16) uint8 {
	if addr >= 0x2000 && addr < 0x4020 {
		return 0xFF
	}
	return d.cpu.Read(addr)
}

func (d *Disassembler) readIncr() uint8 {
	value := d.readSafe(d.pc)
	d.pc++
	return value
}

// Decode disassembles the instruction at the current position.
func (d *Disassembler) Decode() Opcode {
	address := d.pc
	opcode := d.readIncr()
	info := &opTable[opcode]

	bytes := []uint8{opcode}
	var arg uint16
	switch info.Mode.OperandLength() {
	case 1:
		lo := d.readIncr()
		bytes = append(bytes, lo)
		arg = uint16(lo)
	case 2:
		lo := d.readIncr()
		hi := d.readIncr()
		bytes = append(bytes, lo, hi)
		arg = uint16(hi)<<8 | uint16(lo)
	}

	mnemonic := info.Mnemonic
	if info.Kind == KindUnsupported {
		mnemonic = "???"
	}

	var operand string
	switch info.Mode {
	case ModeImplied:
	case ModeAccumulator:
		operand = "A"
	case ModeImmediate:
		operand = fmt.Sprintf("#$%02X", arg)
	case ModeZeroPage:
		operand = fmt.Sprintf("$%02X", arg)
	case ModeZeroPageX:
		operand = fmt.Sprintf("$%02X,X", arg)
	case ModeZeroPageY:
		operand = fmt.Sprintf("$%02X,Y", arg)
	case ModeRelative:
		operand = fmt.Sprintf("$%04X", relativeAddr(d.pc, uint8(arg)))
	case ModeAbsolute:
		operand = fmt.Sprintf("$%04X", arg)
	case ModeAbsoluteX:
		operand = fmt.Sprintf("$%04X,X", arg)
	case ModeAbsoluteY:
		operand = fmt.Sprintf("$%04X,Y", arg)
	case ModeIndirect:
		operand = fmt.Sprintf("($%04X)", arg)
	case ModeIndirectX:
		operand = fmt.Sprintf("($%02X,X)", arg)
	case ModeIndirectY:
		operand = fmt.Sprintf("($%02X),Y", arg)
	}

	str := mnemonic
	if operand != "" {
		str = mnemonic + " " + operand
	}

	return Opcode{
		Address:    address,
		Bytes:      bytes,
		Str:        str,
		Unofficial: info.Unofficial,
	}
}

// DecodeFunction disassembles the straight-line region [entry, exit].
func (d *Disassembler) DecodeFunction(entry, exit uint16) []Opcode {
	d.pc = entry
	var ops []Opcode
	for d.pc <= exit {
		ops = append(ops, d.Decode())
	}
	return ops
}

// trace prints one nestest-style line for the instruction at PC.
func (c *CPU) trace() {
	if !logger.CPUTraceEnabled() {
		return
	}

	op := NewDisassembler(c).Decode()

	var bytes []string
	for _, b := range op.Bytes {
		bytes = append(bytes, fmt.Sprintf("%02X", b))
	}
	marker := " "
	if op.Unofficial {
		marker = "*"
	}

	logger.LogCPU("$%04X:%-9s %s%-30s  A:%02X X:%02X Y:%02X S:%02X",
		op.Address, strings.Join(bytes, " "), marker, op.Str,
		c.A, c.X, c.Y, c.SP)
}

// DisasmFunctions controls block disassembly dumps when the JIT
// compiles a new region.
var DisasmFunctions bool

// disasmFunction dumps the block the analyst found at the entry point.
func (c *CPU) disasmFunction(entry uint16) {
	if !DisasmFunctions || entry < 0x8000 {
		return
	}

	analysis := NewAnalyst(c).Analyze(entry)
	logger.LogInfo("Disassembly of function at %04X -> %04X", analysis.EntryPoint, analysis.ExitPoint)
	for _, op := range NewDisassembler(c).DecodeFunction(analysis.EntryPoint, analysis.ExitPoint) {
		var bytes []string
		for _, b := range op.Bytes {
			bytes = append(bytes, fmt.Sprintf("%02X", b))
		}
		marker := " "
		if op.Unofficial {
			marker = "*"
		}
		logger.LogInfo("%04X:%-9s %s%-30s", op.Address, strings.Join(bytes, " "), marker, op.Str)
	}
}
