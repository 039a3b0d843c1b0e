package cpu

// operand is a resolved addressing mode. Memory modes keep both the
// pre-index base and the final pointer so the page-cross oops cycle can
// be charged. The RMW double instructions never charge it: their base
// count already includes it and their inner operations do not tick.
type operand struct {
	acc     bool
	ptrBase uint16
	ptr     uint16
}

func (o operand) read(c *CPU) uint8 {
	if o.acc {
		return c.A
	}
	return c.Read(o.ptr)
}

func (o operand) write(c *CPU, value uint8) {
	if o.acc {
		c.A = value
	} else {
		c.Write(o.ptr, value)
	}
}

// tickCycle charges the oops cycle when indexing crossed a page.
func (o operand) tickCycle(c *CPU) {
	if !o.acc && o.ptrBase&0xFF00 != o.ptr&0xFF00 {
		c.cycle++
	}
}

// untickCycle takes the oops cycle back. No instruction calls it: the
// double instructions never charge the oops cycle in the first place.
func (o operand) untickCycle(c *CPU) {
	if !o.acc && o.ptrBase&0xFF00 != o.ptr&0xFF00 {
		c.cycle--
	}
}

// resolveOperand decodes the operand bytes for a mode.
func (c *CPU) resolveOperand(mode AddressingMode) operand {
	switch mode {
	case ModeAccumulator:
		return operand{acc: true}
	case ModeImmediate:
		ptr := c.PC
		c.PC++
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeZeroPage:
		ptr := uint16(c.loadIncrPC())
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeZeroPageX:
		ptr := uint16(c.loadIncrPC() + c.X)
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeZeroPageY:
		ptr := uint16(c.loadIncrPC() + c.Y)
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeAbsolute:
		ptr := c.loadWIncrPC()
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeAbsoluteX:
		base := c.loadWIncrPC()
		return operand{ptrBase: base, ptr: base + uint16(c.X)}
	case ModeAbsoluteY:
		base := c.loadWIncrPC()
		return operand{ptrBase: base, ptr: base + uint16(c.Y)}
	case ModeIndirectX:
		arg := c.loadIncrPC()
		ptr := c.readWZeroPage(arg + c.X)
		return operand{ptrBase: ptr, ptr: ptr}
	case ModeIndirectY:
		arg := c.loadIncrPC()
		base := c.readWZeroPage(arg)
		return operand{ptrBase: base, ptr: base + uint16(c.Y)}
	}
	return operand{}
}

// execute dispatches one decoded opcode.
func (c *CPU) execute(opcode uint8) {
	info := &opTable[opcode]

	switch info.Kind {
	// Loads
	case KindLDA:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.A = c.setSignZero(mode.read(c))
	case KindLDX:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.X = c.setSignZero(mode.read(c))
	case KindLDY:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.Y = c.setSignZero(mode.read(c))

	// Stores
	case KindSTA:
		c.resolveOperand(info.Mode).write(c, c.A)
	case KindSTX:
		c.resolveOperand(info.Mode).write(c, c.X)
	case KindSTY:
		c.resolveOperand(info.Mode).write(c, c.Y)

	// Arithmetic
	case KindADC:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.doADC(mode.read(c))
	case KindSBC:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.doADC(^mode.read(c))
	case KindCMP:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.compare(c.A, mode.read(c))
	case KindCPX:
		c.compare(c.X, c.resolveOperand(info.Mode).read(c))
	case KindCPY:
		c.compare(c.Y, c.resolveOperand(info.Mode).read(c))

	// Logic
	case KindAND:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.A = c.setSignZero(c.A & mode.read(c))
	case KindORA:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.A = c.setSignZero(c.A | mode.read(c))
	case KindEOR:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.A = c.setSignZero(c.A ^ mode.read(c))
	case KindBIT:
		value := c.resolveOperand(info.Mode).read(c)
		c.setFlag(FlagS, value&0x80 != 0)
		c.setFlag(FlagV, value&0x40 != 0)
		c.setFlag(FlagZ, value&c.A == 0)

	// Read-modify-write
	case KindINC:
		c.opINC(c.resolveOperand(info.Mode))
	case KindDEC:
		c.opDEC(c.resolveOperand(info.Mode))
	case KindASL:
		c.opASL(c.resolveOperand(info.Mode))
	case KindLSR:
		c.opLSR(c.resolveOperand(info.Mode))
	case KindROL:
		c.opROL(c.resolveOperand(info.Mode))
	case KindROR:
		c.opROR(c.resolveOperand(info.Mode))

	// Register steps and transfers
	case KindINX:
		c.X = c.setSignZero(c.X + 1)
	case KindINY:
		c.Y = c.setSignZero(c.Y + 1)
	case KindDEX:
		c.X = c.setSignZero(c.X - 1)
	case KindDEY:
		c.Y = c.setSignZero(c.Y - 1)
	case KindTAX:
		c.X = c.setSignZero(c.A)
	case KindTAY:
		c.Y = c.setSignZero(c.A)
	case KindTXA:
		c.A = c.setSignZero(c.X)
	case KindTYA:
		c.A = c.setSignZero(c.Y)
	case KindTSX:
		c.X = c.setSignZero(c.SP)
	case KindTXS:
		c.SP = c.X

	// Flags
	case KindSEC:
		c.P |= FlagC
	case KindCLC:
		c.P &^= FlagC
	case KindSEI:
		c.P |= FlagI
	case KindCLI:
		c.P &^= FlagI
	case KindSED:
		c.P |= FlagD
	case KindCLD:
		c.P &^= FlagD
	case KindCLV:
		c.P &^= FlagV

	// Stack
	case KindPHA:
		c.stackPush(c.A)
	case KindPHP:
		c.stackPush(c.P | FlagB | FlagU)
	case KindPLA:
		c.A = c.setSignZero(c.stackPop())
	case KindPLP:
		c.P = c.stackPop()&^FlagB | FlagU

	// Control flow
	case KindJMP:
		c.PC = c.loadWIncrPC()
	case KindJMPI:
		c.PC = c.readWSamePage(c.loadWIncrPC())
	case KindJSR:
		target := c.loadWIncrPC()
		c.stackPushW(c.PC - 1)
		c.PC = target
	case KindRTS:
		c.PC = c.stackPopW() + 1
	case KindRTI:
		c.P = c.stackPop()&^FlagB | FlagU
		c.PC = c.stackPopW()
	case KindBRK:
		// BRK skips one byte and pushes P with Break set.
		c.PC++
		target := c.readW(IRQVector)
		c.stackPushW(c.PC)
		c.stackPush(c.P | FlagB)
		c.P |= FlagI
		c.PC = target

	case KindBCC:
		c.branch(c.P&FlagC == 0)
	case KindBCS:
		c.branch(c.P&FlagC != 0)
	case KindBEQ:
		c.branch(c.P&FlagZ != 0)
	case KindBNE:
		c.branch(c.P&FlagZ == 0)
	case KindBMI:
		c.branch(c.P&FlagS != 0)
	case KindBPL:
		c.branch(c.P&FlagS == 0)
	case KindBVC:
		c.branch(c.P&FlagV == 0)
	case KindBVS:
		c.branch(c.P&FlagV != 0)

	case KindNOP:
		// Nothing.
	case KindUNOP:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		mode.read(c)

	// Stable undocumented opcodes
	case KindLAX:
		mode := c.resolveOperand(info.Mode)
		mode.tickCycle(c)
		c.A = c.setSignZero(mode.read(c))
		c.X = c.A
	case KindSAX:
		c.resolveOperand(info.Mode).write(c, c.A&c.X)
	case KindDCP:
		mode := c.resolveOperand(info.Mode)
		c.opDEC(mode)
		c.compare(c.A, mode.read(c))
	case KindISB:
		mode := c.resolveOperand(info.Mode)
		c.opINC(mode)
		c.doADC(^mode.read(c))
	case KindSLO:
		mode := c.resolveOperand(info.Mode)
		c.opASL(mode)
		c.A = c.setSignZero(c.A | mode.read(c))
	case KindRLA:
		mode := c.resolveOperand(info.Mode)
		c.opROL(mode)
		c.A = c.setSignZero(c.A & mode.read(c))
	case KindSRE:
		mode := c.resolveOperand(info.Mode)
		c.opLSR(mode)
		c.A = c.setSignZero(c.A ^ mode.read(c))
	case KindRRA:
		mode := c.resolveOperand(info.Mode)
		c.opROR(mode)
		c.doADC(mode.read(c))

	case KindKIL:
		c.halted = true

	default:
		c.unsupportedOpcode(opcode)
	}
}

func (c *CPU) doADC(arg uint8) {
	result := uint16(c.A) + uint16(arg)
	if c.P&FlagC != 0 {
		result++
	}
	c.setFlag(FlagC, result > 0xFF)

	res8 := uint8(result)
	c.setFlag(FlagV, (c.A^arg)&0x80 == 0 && (c.A^res8)&0x80 == 0x80)
	c.A = c.setSignZero(res8)
}

func (c *CPU) compare(reg, arg uint8) {
	c.setFlag(FlagC, reg >= arg)
	c.setSignZero(reg - arg)
}

func (c *CPU) opINC(mode operand) {
	mode.write(c, c.setSignZero(mode.read(c)+1))
}

func (c *CPU) opDEC(mode operand) {
	mode.write(c, c.setSignZero(mode.read(c)-1))
}

func (c *CPU) opASL(mode operand) {
	value := mode.read(c)
	c.setFlag(FlagC, value&0x80 != 0)
	mode.write(c, c.setSignZero(value<<1))
}

func (c *CPU) opLSR(mode operand) {
	value := mode.read(c)
	c.setFlag(FlagC, value&0x01 != 0)
	mode.write(c, c.setSignZero(value>>1))
}

func (c *CPU) opROL(mode operand) {
	value := mode.read(c)
	newCarry := value&0x80 != 0
	result := value << 1
	if c.P&FlagC != 0 {
		result |= 0x01
	}
	c.setSignZero(result)
	c.setFlag(FlagC, newCarry)
	mode.write(c, result)
}

func (c *CPU) opROR(mode operand) {
	value := mode.read(c)
	newCarry := value&0x01 != 0
	result := value >> 1
	if c.P&FlagC != 0 {
		result |= 0x80
	}
	c.setSignZero(result)
	c.setFlag(FlagC, newCarry)
	mode.write(c, result)
}

// branch takes a relative displacement; taken branches cost one extra
// cycle, two when the target crosses a page.
func (c *CPU) branch(cond bool) {
	arg := c.loadIncrPC()
	if !cond {
		return
	}
	target := relativeAddr(c.PC, arg)
	c.cycle++
	if c.PC&0xFF00 != target&0xFF00 {
		c.cycle++
	}
	c.PC = target
}

func relativeAddr(pc uint16, disp uint8) uint16 {
	return uint16(int32(pc) + int32(int8(disp)))
}
