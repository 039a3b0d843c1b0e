//go:build amd64 && (linux || darwin)

package cpu

// The recompiler translates one basic block to native code. Inside a
// block the 6502 state lives in machine registers:
//
//	RBX  context pointer      R9B   A      R12B  P
//	RDX  RAM base             R10B  X      R13B  SP
//	R8B  operand scratch      R11B  Y      R14W  PC
//	R15  cycle counter        RAX/RCX/RSI/RDI  scratch
//
// RCX holds the effective address across an instruction. Accesses that
// resolve outside $0000-$1FFF exit the block with the instruction
// unexecuted; the scheduler completes it through the interpreter.

// Block exit reasons, written to the context before returning.
const (
	jitExitControlFlow = 0
	jitExitDeadline    = 1
	jitExitInterpret   = 2
	jitExitHalt        = 3
)

// Context field offsets; must match jitContext in jit_amd64.go.
const (
	ctxA        = 0
	ctxX        = 1
	ctxY        = 2
	ctxP        = 3
	ctxSP       = 4
	ctxPC       = 8
	ctxCycle    = 16
	ctxDeadline = 24
	ctxRAM      = 32
	ctxExit     = 40
)

const (
	jA     = regR9
	jX     = regR10
	jY     = regR11
	jP     = regR12
	jSP    = regR13
	jPC    = regR14
	jCycle = regR15
	jArg   = regR8
	jCtx   = regBX
	jRAM   = regDX
)

// CompileBlock analyzes and compiles the block at addr.
func CompileBlock(addr uint16, c *CPU) *ExecutableBlock {
	analysis := NewAnalyst(c).Analyze(addr)
	comp := &compiler{
		asm:      NewAssembler(),
		cpu:      c,
		analysis: analysis,
		targets:  make(map[uint16]Label),
	}
	code := comp.compile()
	return newExecutableBlock(code)
}

type compiler struct {
	asm      *Assembler
	cpu      *CPU
	analysis BlockAnalysis

	pc         uint16
	instrStart uint16
	live       uint8

	epilogue Label
	targets  map[uint16]Label
}

// readIncrPC fetches code bytes during compilation.
func (p *compiler) readIncrPC() uint8 {
	value := p.readSafe(p.pc)
	p.pc++
	return value
}

func (p *compiler) readWIncrPC() uint16 {
	lo := uint16(p.readIncrPC())
	hi := uint16(p.readIncrPC())
	return hi<<8 | lo
}

func (p *compiler) readSafe(addr uint16) uint8 {
	if addr >= 0x2000 && addr < 0x4020 {
		return 0xFF
	}
	return p.cpu.Read(addr)
}

func (p *compiler) compile() []byte {
	a := p.asm
	p.epilogue = a.NewLabel()

	// Pre-create labels for intra-block branch targets.
	for addr, instr := range p.analysis.Instructions {
		if instr.IsBranchTarget {
			p.targets[addr] = a.NewLabel()
		}
	}

	p.emitPrologue()

	p.pc = p.analysis.EntryPoint
	for p.pc <= p.analysis.ExitPoint {
		p.instrStart = p.pc
		if l, ok := p.targets[p.pc]; ok {
			a.Bind(l)
		}
		if instr, ok := p.analysis.Instructions[p.pc]; ok {
			p.live = instr.LiveFlags
		} else {
			p.live = analysisAll
		}

		p.emitDeadlineCheck()
		opcode := p.readIncrPC()
		p.emitInstruction(opcode)
	}

	// Fallthrough past the exit point: leave at the next PC.
	p.emitExit(jitExitControlFlow, p.pc)

	a.Bind(p.epilogue)
	p.emitStoreState()
	a.Ret()

	return a.Finish()
}

// emitPrologue loads the 6502 state into its dedicated registers.
func (p *compiler) emitPrologue() {
	a := p.asm
	a.MovzxB64(jA, jCtx, ctxA)
	a.MovzxB64(jX, jCtx, ctxX)
	a.MovzxB64(jY, jCtx, ctxY)
	a.MovzxB64(jP, jCtx, ctxP)
	a.MovzxB64(jSP, jCtx, ctxSP)
	a.MovzxW64(jPC, jCtx, ctxPC)
	a.MovQLoad(jCycle, jCtx, ctxCycle)
	a.MovQLoad(jRAM, jCtx, ctxRAM)
}

// emitStoreState writes the register file back to the context.
func (p *compiler) emitStoreState() {
	a := p.asm
	a.MovBStore(jA, jCtx, ctxA)
	a.MovBStore(jX, jCtx, ctxX)
	a.MovBStore(jY, jCtx, ctxY)
	a.MovBStore(jP, jCtx, ctxP)
	a.MovBStore(jSP, jCtx, ctxSP)
	a.MovWStore(jPC, jCtx, ctxPC)
	a.MovQStore(jCycle, jCtx, ctxCycle)
}

// emitExit leaves the block with the given reason and next PC.
func (p *compiler) emitExit(reason int, nextPC uint16) {
	a := p.asm
	a.MovWRegImm(jPC, nextPC)
	a.MovQStoreImm(jCtx, ctxExit, uint32(reason))
	a.Jmp(p.epilogue)
}

// emitDeadlineCheck exits before the instruction once the cycle counter
// reaches the device deadline.
func (p *compiler) emitDeadlineCheck() {
	a := p.asm
	ok := a.NewLabel()
	a.CmpQMem(jCycle, jCtx, ctxDeadline)
	a.Jcc(ccB, ok)
	p.emitExit(jitExitDeadline, p.instrStart)
	a.Bind(ok)
}

// emitInterpretExit rewinds to the instruction start so the interpreter
// can run it; no cycles have been charged yet.
func (p *compiler) emitInterpretExit() {
	p.emitExit(jitExitInterpret, p.instrStart)
}

func (p *compiler) chargeCycles(opcode uint8) {
	p.asm.AddQImm(jCycle, int32(cycleTable[opcode]))
}

// argSource describes where an instruction's operand lives after
// address resolution.
type argSource int

const (
	argNone argSource = iota
	argAccumulator
	argImmediate // immediate byte already in R8B
	argRAM       // masked RAM offset in RCX
)

// resolveAddress emits effective-address computation for a memory
// mode, leaving a masked RAM offset in RCX. Accesses that cannot be in
// RAM exit to the interpreter. withOops adds the page-cross cycle for
// read-class instructions.
func (p *compiler) resolveAddress(mode AddressingMode, withOops bool) argSource {
	a := p.asm

	switch mode {
	case ModeAccumulator:
		return argAccumulator

	case ModeImmediate:
		a.MovBRegImm(jArg, p.readIncrPC())
		return argImmediate

	case ModeZeroPage:
		a.MovDRegImm(regCX, uint32(p.readIncrPC()))
		return argRAM

	case ModeZeroPageX, ModeZeroPageY:
		idx := jX
		if mode == ModeZeroPageY {
			idx = jY
		}
		a.MovBRegImm(regCX, p.readIncrPC())
		a.AddB(regCX, idx)
		a.MovzxDRegB(regCX, regCX)
		return argRAM

	case ModeAbsolute:
		addr := p.readWIncrPC()
		if addr < 0x2000 {
			a.MovDRegImm(regCX, uint32(addr&0x07FF))
			return argRAM
		}
		// Statically outside RAM: always the interpreter's problem.
		p.emitInterpretExit()
		return argNone

	case ModeAbsoluteX, ModeAbsoluteY:
		base := p.readWIncrPC()
		idx := jX
		if mode == ModeAbsoluteY {
			idx = jY
		}
		a.MovDRegImm(regCX, uint32(base))
		a.MovzxDRegB(regAX, idx)
		a.AddD(regCX, regAX)
		a.AndDImm(regCX, 0xFFFF)
		src := p.emitRAMCheck()
		if withOops {
			// Oops cycle when the low byte carries, charged only once the
			// access is known to stay in the block.
			noOops := a.NewLabel()
			a.MovBRegImm(regAX, uint8(base))
			a.AddB(regAX, idx)
			a.Jcc(ccAE, noOops) // no carry
			a.IncQ(jCycle)
			a.Bind(noOops)
		}
		return src

	case ModeIndirectX:
		arg := p.readIncrPC()
		a.MovBRegImm(regCX, arg)
		a.AddB(regCX, jX)
		a.MovzxDRegB(regCX, regCX)
		a.MovBLoadIdx(regSI, jRAM, regCX, 0) // pointer low
		a.IncB(regCX)
		a.MovzxDRegB(regCX, regCX)
		a.MovBLoadIdx(regDI, jRAM, regCX, 0) // pointer high
		a.MovzxDRegB(regCX, regSI)
		a.MovzxDRegB(regDI, regDI)
		a.ShlDImm(regDI, 8)
		a.OrD(regCX, regDI)
		return p.emitRAMCheck()

	case ModeIndirectY:
		arg := p.readIncrPC()
		// pointer low and high from zero page with 8-bit wrap
		a.MovDRegImm(regCX, uint32(arg))
		a.MovBLoadIdx(regSI, jRAM, regCX, 0)
		a.MovDRegImm(regCX, uint32(uint8(arg+1)))
		a.MovBLoadIdx(regDI, jRAM, regCX, 0)
		a.MovzxDRegB(regCX, regSI)
		a.MovzxDRegB(regDI, regDI)
		a.ShlDImm(regDI, 8)
		a.OrD(regCX, regDI) // base
		a.MovzxDRegB(regAX, jY)
		a.AddD(regCX, regAX)
		a.AndDImm(regCX, 0xFFFF)
		src := p.emitRAMCheck()
		if withOops {
			// The low byte carried exactly when the final low byte is
			// below Y; charged only once the access stays in the block.
			noOops := a.NewLabel()
			a.CmpB(regCX, jY)
			a.Jcc(ccAE, noOops)
			a.IncQ(jCycle)
			a.Bind(noOops)
		}
		return src
	}

	return argNone
}

// emitRAMCheck exits to the interpreter unless the effective address in
// ECX lands in RAM, then masks the mirror.
func (p *compiler) emitRAMCheck() argSource {
	a := p.asm
	ok := a.NewLabel()
	a.CmpDImm(regCX, 0x2000)
	a.Jcc(ccB, ok)
	p.emitInterpretExit()
	a.Bind(ok)
	a.AndDImm(regCX, 0x07FF)
	return argRAM
}

// loadArg materializes the operand into R8B.
func (p *compiler) loadArg(src argSource) {
	switch src {
	case argAccumulator:
		p.asm.MovBRegReg(jArg, jA)
	case argRAM:
		p.asm.MovBLoadIdx(jArg, jRAM, regCX, 0)
	}
}

// storeArg writes R8B back to the operand location.
func (p *compiler) storeArg(src argSource) {
	switch src {
	case argAccumulator:
		p.asm.MovBRegReg(jA, jArg)
	case argRAM:
		p.asm.MovBStoreIdx(jArg, jRAM, regCX, 0)
	}
}

// emitSetSZ folds the sign and zero of an 8-bit register into P,
// honoring the liveness mask.
func (p *compiler) emitSetSZ(reg int) {
	a := p.asm
	mask := p.live & (analysisS | analysisZ)
	if mask == 0 {
		return
	}

	a.TestB(reg, reg)
	if mask&analysisZ != 0 {
		a.Setcc(ccE, regAX)
	}
	if mask&analysisS != 0 {
		a.Setcc(ccS, regSI)
	}
	a.AndBImm(jP, ^mask)
	if mask&analysisZ != 0 {
		a.ShlBImm(regAX, 1)
		a.OrB(jP, regAX)
	}
	if mask&analysisS != 0 {
		a.ShlBImm(regSI, 7)
		a.OrB(jP, regSI)
	}
}

// mergeFlag ors a 0/1 register into one P bit.
func (p *compiler) mergeFlag(reg int, flag uint8, shift uint8) {
	a := p.asm
	if shift > 0 {
		a.ShlBImm(reg, shift)
	}
	a.AndBImm(jP, ^flag)
	a.OrB(jP, reg)
}

func (p *compiler) emitInstruction(opcode uint8) {
	a := p.asm
	info := &opTable[opcode]

	switch info.Kind {
	case KindLDA, KindLDX, KindLDY, KindLAX:
		src := p.resolveAddress(info.Mode, true)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		switch info.Kind {
		case KindLDA:
			a.MovBRegReg(jA, jArg)
		case KindLDX:
			a.MovBRegReg(jX, jArg)
		case KindLDY:
			a.MovBRegReg(jY, jArg)
		case KindLAX:
			a.MovBRegReg(jA, jArg)
			a.MovBRegReg(jX, jArg)
		}
		p.emitSetSZ(jArg)

	case KindSTA, KindSTX, KindSTY, KindSAX:
		src := p.resolveAddress(info.Mode, false)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		switch info.Kind {
		case KindSTA:
			a.MovBRegReg(jArg, jA)
		case KindSTX:
			a.MovBRegReg(jArg, jX)
		case KindSTY:
			a.MovBRegReg(jArg, jY)
		case KindSAX:
			a.MovBRegReg(jArg, jA)
			a.AndB(jArg, jX)
		}
		p.storeArg(src)

	case KindADC, KindSBC:
		src := p.resolveAddress(info.Mode, true)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		if info.Kind == KindSBC {
			a.XorBImm(jArg, 0xFF)
		}
		p.emitADC()

	case KindCMP, KindCPX, KindCPY:
		src := p.resolveAddress(info.Mode, true)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		reg := jA
		if info.Kind == KindCPX {
			reg = jX
		} else if info.Kind == KindCPY {
			reg = jY
		}
		a.MovBRegReg(regAX, reg)
		a.SubB(regAX, jArg)
		if p.live&analysisC != 0 {
			a.Setcc(ccAE, regSI) // 6502 carry = no borrow
			p.mergeFlag(regSI, analysisC, 0)
		}
		p.emitSetSZ(regAX)

	case KindAND, KindORA, KindEOR:
		src := p.resolveAddress(info.Mode, true)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		switch info.Kind {
		case KindAND:
			a.AndB(jA, jArg)
		case KindORA:
			a.OrB(jA, jArg)
		case KindEOR:
			a.XorB(jA, jArg)
		}
		p.emitSetSZ(jA)

	case KindBIT:
		src := p.resolveAddress(info.Mode, false)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		if p.live&analysisS != 0 {
			a.MovBRegReg(regAX, jArg)
			a.AndBImm(regAX, 0x80)
			p.mergeFlag(regAX, analysisS, 0)
		}
		if p.live&analysisV != 0 {
			a.MovBRegReg(regAX, jArg)
			a.AndBImm(regAX, FlagV)
			p.mergeFlag(regAX, analysisV, 0)
		}
		if p.live&analysisZ != 0 {
			a.MovBRegReg(regAX, jArg)
			a.AndB(regAX, jA)
			a.TestB(regAX, regAX)
			a.Setcc(ccE, regAX)
			p.mergeFlag(regAX, analysisZ, 1)
		}

	case KindINC, KindDEC:
		src := p.resolveAddress(info.Mode, false)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		if info.Kind == KindINC {
			a.IncB(jArg)
		} else {
			a.DecB(jArg)
		}
		p.emitSetSZ(jArg)
		p.storeArg(src)

	case KindASL, KindLSR, KindROL, KindROR:
		src := p.resolveAddress(info.Mode, false)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		p.emitShift(info.Kind)
		p.storeArg(src)

	case KindSLO, KindRLA, KindSRE, KindRRA, KindDCP, KindISB:
		src := p.resolveAddress(info.Mode, false)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)
		switch info.Kind {
		case KindSLO:
			p.emitShift(KindASL)
			p.storeArg(src)
			a.OrB(jA, jArg)
			p.emitSetSZ(jA)
		case KindRLA:
			p.emitShift(KindROL)
			p.storeArg(src)
			a.AndB(jA, jArg)
			p.emitSetSZ(jA)
		case KindSRE:
			p.emitShift(KindLSR)
			p.storeArg(src)
			a.XorB(jA, jArg)
			p.emitSetSZ(jA)
		case KindRRA:
			p.emitShift(KindROR)
			p.storeArg(src)
			p.emitADC()
		case KindDCP:
			a.DecB(jArg)
			p.storeArg(src)
			a.MovBRegReg(regAX, jA)
			a.SubB(regAX, jArg)
			if p.live&analysisC != 0 {
				a.Setcc(ccAE, regSI)
				p.mergeFlag(regSI, analysisC, 0)
			}
			p.emitSetSZ(regAX)
		case KindISB:
			a.IncB(jArg)
			p.storeArg(src)
			a.XorBImm(jArg, 0xFF)
			p.emitADC()
		}

	case KindINX:
		p.chargeCycles(opcode)
		a.IncB(jX)
		p.emitSetSZ(jX)
	case KindINY:
		p.chargeCycles(opcode)
		a.IncB(jY)
		p.emitSetSZ(jY)
	case KindDEX:
		p.chargeCycles(opcode)
		a.DecB(jX)
		p.emitSetSZ(jX)
	case KindDEY:
		p.chargeCycles(opcode)
		a.DecB(jY)
		p.emitSetSZ(jY)

	case KindTAX:
		p.chargeCycles(opcode)
		a.MovBRegReg(jX, jA)
		p.emitSetSZ(jX)
	case KindTAY:
		p.chargeCycles(opcode)
		a.MovBRegReg(jY, jA)
		p.emitSetSZ(jY)
	case KindTXA:
		p.chargeCycles(opcode)
		a.MovBRegReg(jA, jX)
		p.emitSetSZ(jA)
	case KindTYA:
		p.chargeCycles(opcode)
		a.MovBRegReg(jA, jY)
		p.emitSetSZ(jA)
	case KindTSX:
		p.chargeCycles(opcode)
		a.MovBRegReg(jX, jSP)
		p.emitSetSZ(jX)
	case KindTXS:
		p.chargeCycles(opcode)
		a.MovBRegReg(jSP, jX)

	case KindSEC:
		p.chargeCycles(opcode)
		a.OrBImm(jP, FlagC)
	case KindCLC:
		p.chargeCycles(opcode)
		a.AndBImm(jP, ^uint8(FlagC))
	case KindSEI:
		p.chargeCycles(opcode)
		a.OrBImm(jP, FlagI)
	case KindCLI:
		p.chargeCycles(opcode)
		a.AndBImm(jP, ^uint8(FlagI))
	case KindSED:
		p.chargeCycles(opcode)
		a.OrBImm(jP, FlagD)
	case KindCLD:
		p.chargeCycles(opcode)
		a.AndBImm(jP, ^uint8(FlagD))
	case KindCLV:
		p.chargeCycles(opcode)
		a.AndBImm(jP, ^uint8(FlagV))

	case KindPHA:
		p.chargeCycles(opcode)
		p.emitStackPushReg(jA)
	case KindPHP:
		p.chargeCycles(opcode)
		a.MovBRegReg(regAX, jP)
		a.OrBImm(regAX, FlagB|FlagU)
		p.emitStackPushReg(regAX)
	case KindPLA:
		p.chargeCycles(opcode)
		p.emitStackPop(jA)
		p.emitSetSZ(jA)
	case KindPLP:
		p.chargeCycles(opcode)
		p.emitStackPop(jP)
		a.AndBImm(jP, ^uint8(FlagB))
		a.OrBImm(jP, FlagU)

	case KindNOP:
		p.chargeCycles(opcode)

	case KindUNOP:
		src := p.resolveAddress(info.Mode, true)
		if src == argNone {
			return
		}
		p.chargeCycles(opcode)
		p.loadArg(src)

	case KindJMP:
		target := p.readWIncrPC()
		p.chargeCycles(opcode)
		p.emitExit(jitExitControlFlow, target)

	case KindJSR:
		target := p.readWIncrPC()
		p.chargeCycles(opcode)
		returnAddr := p.pc - 1
		a.MovBRegImm(regAX, uint8(returnAddr>>8))
		p.emitStackPushReg(regAX)
		a.MovBRegImm(regAX, uint8(returnAddr))
		p.emitStackPushReg(regAX)
		p.emitExit(jitExitControlFlow, target)

	case KindRTS:
		p.chargeCycles(opcode)
		p.emitStackPop(regAX)
		p.emitStackPop(regSI)
		a.MovzxDRegB(jPC, regAX)
		a.MovzxDRegB(regSI, regSI)
		a.ShlDImm(regSI, 8)
		a.OrD(jPC, regSI)
		a.IncW(jPC)
		a.MovQStoreImm(jCtx, ctxExit, jitExitControlFlow)
		a.Jmp(p.epilogue)

	case KindRTI:
		p.chargeCycles(opcode)
		p.emitStackPop(jP)
		a.AndBImm(jP, ^uint8(FlagB))
		a.OrBImm(jP, FlagU)
		p.emitStackPop(regAX)
		p.emitStackPop(regSI)
		a.MovzxDRegB(jPC, regAX)
		a.MovzxDRegB(regSI, regSI)
		a.ShlDImm(regSI, 8)
		a.OrD(jPC, regSI)
		a.MovQStoreImm(jCtx, ctxExit, jitExitControlFlow)
		a.Jmp(p.epilogue)

	case KindBCC:
		p.emitBranch(opcode, FlagC, false)
	case KindBCS:
		p.emitBranch(opcode, FlagC, true)
	case KindBNE:
		p.emitBranch(opcode, FlagZ, false)
	case KindBEQ:
		p.emitBranch(opcode, FlagZ, true)
	case KindBPL:
		p.emitBranch(opcode, FlagS, false)
	case KindBMI:
		p.emitBranch(opcode, FlagS, true)
	case KindBVC:
		p.emitBranch(opcode, FlagV, false)
	case KindBVS:
		p.emitBranch(opcode, FlagV, true)

	case KindKIL:
		p.emitExit(jitExitHalt, p.instrStart)

	default:
		// JMP (indirect), BRK and anything else with bus-wide effects
		// run through the interpreter. The scan still has to step over
		// the operand bytes to stay aligned with the analyst.
		p.pc += uint16(info.Mode.OperandLength())
		p.emitInterpretExit()
	}
}

// emitADC adds R8B to A with carry-in from P, updating C/V/S/Z per the
// liveness mask.
func (p *compiler) emitADC() {
	a := p.asm
	a.BtDImm(jP, 0) // CF = 6502 carry
	a.AdcB(jA, jArg)
	if p.live&analysisC != 0 {
		a.Setcc(ccB, regAX) // CF after adc
	}
	if p.live&analysisV != 0 {
		a.Setcc(ccO, regSI)
	}
	if p.live&analysisC != 0 {
		p.mergeFlag(regAX, analysisC, 0)
	}
	if p.live&analysisV != 0 {
		p.mergeFlag(regSI, analysisV, 6)
	}
	p.emitSetSZ(jA)
}

// emitShift applies one of the four shift/rotate forms to R8B.
func (p *compiler) emitShift(kind OpKind) {
	a := p.asm

	switch kind {
	case KindASL:
		a.ShlB(jArg)
	case KindLSR:
		a.ShrB(jArg)
	case KindROL:
		a.BtDImm(jP, 0)
		a.RclB(jArg)
	case KindROR:
		a.BtDImm(jP, 0)
		a.RcrB(jArg)
	}
	if p.live&analysisC != 0 {
		a.Setcc(ccB, regAX)
		p.mergeFlag(regAX, analysisC, 0)
	}
	p.emitSetSZ(jArg)
}

// emitStackPushReg stores a register at $0100+SP and decrements SP.
func (p *compiler) emitStackPushReg(reg int) {
	a := p.asm
	a.MovzxDRegB(regCX, jSP)
	a.MovBStoreIdx(reg, jRAM, regCX, 0x100)
	a.DecB(jSP)
}

// emitStackPop increments SP and loads from $0100+SP.
func (p *compiler) emitStackPop(reg int) {
	a := p.asm
	a.IncB(jSP)
	a.MovzxDRegB(regCX, jSP)
	a.MovBLoadIdx(reg, jRAM, regCX, 0x100)
}

// emitBranch compiles a conditional branch. Forward targets inside the
// block become native jumps; anything else exits with the target PC.
// Branch cycle costs are compile-time constants.
func (p *compiler) emitBranch(opcode uint8, flag uint8, wantSet bool) {
	a := p.asm
	arg := p.readIncrPC()
	target := relativeAddr(p.pc, arg)

	p.chargeCycles(opcode)

	notTaken := a.NewLabel()
	a.TestBImm(jP, flag)
	if wantSet {
		a.Jcc(ccE, notTaken) // flag clear: fall through
	} else {
		a.Jcc(ccNE, notTaken)
	}

	// Taken: one extra cycle, another if the target crosses a page.
	extra := int32(1)
	if p.pc&0xFF00 != target&0xFF00 {
		extra++
	}
	a.AddQImm(jCycle, extra)

	if l, ok := p.targets[target]; ok && target > p.instrStart {
		a.Jmp(l)
	} else {
		p.emitExit(jitExitControlFlow, target)
	}

	a.Bind(notTaken)
}
