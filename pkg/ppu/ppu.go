package ppu

import (
	"github.com/famigo/pkg/logger"
	"github.com/famigo/pkg/mapper"
	"github.com/famigo/pkg/screen"
)

const (
	cyclesPerScanline = 341
	scanlinesPerFrame = 262
	cyclesPerFrame    = cyclesPerScanline * scanlinesPerFrame
)

// StepResult reports whether a RunTo interval crossed a vblank start
// with NMI generation enabled.
type StepResult int

const (
	StepNone StepResult = iota
	StepNMI
)

// PPU is the picture processing unit: register file, memory, the two
// renderers and the dot clock. Rendering is lazy: the CPU runs the PPU
// forward and the interval is rendered as one pixel span.
type PPU struct {
	Reg        Reg
	readBuffer uint8
	Mem        *Memory

	Screen        screen.Screen
	paletteBuffer [screen.BufferSize]PaletteIndex
	screenBuffer  [screen.BufferSize]screen.Color

	sprites    *SpriteRenderer
	background BackgroundRenderer

	globalCyc uint64
	cyc       uint16
	sl        int16
	frame     uint32

	nextVBlankPPUCyc uint64
	nextVBlankCPUCyc uint64
}

// New builds a PPU bound to a mapper for CHR fetches and a video sink
// for finished frames. The dot clock powers on at the start of vblank.
func New(cart mapper.Mapper, scr screen.Screen) *PPU {
	return &PPU{
		Mem:     NewMemory(cart),
		Screen:  scr,
		sprites: NewSpriteRenderer(),

		sl: 241,

		nextVBlankPPUCyc: 1,
		nextVBlankCPUCyc: ppuToCPUCyc(1),
	}
}

func ppuToCPUCyc(ppuCyc uint64) uint64 {
	return (ppuCyc + 2) / 3
}

func cpuToPPUCyc(cpuCyc uint64) uint64 {
	return cpuCyc * 3
}

// cycToPx maps an absolute PPU cycle to an absolute pixel count:
// full frames, then full visible scanlines, then dots into the line,
// with the pre-render line, hblank and vblank cut out.
func cycToPx(ppuCyc uint64) uint64 {
	// Skip to the dot-clock position at power-on: scanline 241 starts
	// 242 lines after the start of the pre-render line.
	rem := ppuCyc + 242*cyclesPerScanline

	frames := rem / cyclesPerFrame
	rem %= cyclesPerFrame
	px := frames * screen.BufferSize

	// Skip the pre-render scanline.
	if rem > cyclesPerScanline {
		rem -= cyclesPerScanline
	} else {
		rem = 0
	}
	// Cut off the vblank scanlines.
	if rem > screen.Height*cyclesPerScanline {
		rem = screen.Height * cyclesPerScanline
	}

	scanlines := rem / cyclesPerScanline
	rem %= cyclesPerScanline
	px += scanlines * screen.Width

	// Skip the idle dot, cut off hblank.
	if rem > 0 {
		rem--
	}
	if rem > screen.Width {
		rem = screen.Width
	}

	return px + rem
}

// RunTo advances the PPU to 3x the given CPU cycle, then renders and
// colorizes exactly the pixel span the interval covered.
func (p *PPU) RunTo(cpuCycle uint64) StepResult {
	start := p.globalCyc
	stop := cpuToPPUCyc(cpuCycle)
	// The odd-frame skip can leave the dot clock one past a previous
	// stop cycle.
	if stop < start {
		stop = start
	}

	startPxAbs := cycToPx(start)
	deltaPx := int(cycToPx(stop) - startPxAbs)
	startPx := int(startPxAbs % screen.BufferSize)
	stopPx := startPx + deltaPx
	if stopPx > screen.BufferSize {
		stopPx = screen.BufferSize
	}

	hitNMI := false
	for p.globalCyc < stop {
		p.tickCycle()
		p.runCycle(&hitNMI)
	}

	if p.Reg.Mask&MaskBGShow != 0 {
		p.background.Render(&p.paletteBuffer, startPx, stopPx, &p.Reg, p.Mem)
	} else {
		for i := startPx; i < stopPx; i++ {
			p.paletteBuffer[i] = Transparent
		}
	}
	if p.Reg.Mask&MaskSpriteShow != 0 {
		p.sprites.Render(&p.paletteBuffer, &p.Reg, startPx, stopPx)
	}

	p.colorize(startPx, stopPx)

	if hitNMI {
		return StepNMI
	}
	return StepNone
}

// RequestedRunCycle returns the CPU cycle of the next vblank start;
// the CPU must run the PPU no later than that.
func (p *PPU) RequestedRunCycle() uint64 {
	return p.nextVBlankCPUCyc
}

func (p *PPU) tickCycle() {
	p.globalCyc++
	p.cyc++
	if p.cyc == cyclesPerScanline {
		p.cyc = 0
		p.sl++
		if p.sl == 261 {
			p.sl = -1
			p.frame++
		}
	}
}

func (p *PPU) runCycle(hitNMI *bool) {
	switch {
	case p.sl == -1:
		p.prerenderScanline()
	case p.sl < screen.Height:
		if p.cyc == 0 {
			p.sprites.Evaluate(uint16(p.sl), &p.Reg, p.Mem)
		}
	case p.sl == 241 && p.cyc == 1:
		p.startVBlank(hitNMI)
	}
}

func (p *PPU) prerenderScanline() {
	if p.cyc == 1 {
		p.Reg.Status &^= StatusVBlank | StatusSprite0Hit | StatusSpriteOverflow
	}
	// Odd frames skip dot 339 while rendering is on.
	if p.cyc == 339 && p.frame%2 == 1 && p.Reg.RenderingEnabled() {
		p.tickCycle()
	}
}

func (p *PPU) startVBlank(hitNMI *bool) {
	p.nextVBlankPPUCyc += cyclesPerFrame
	p.nextVBlankCPUCyc = ppuToCPUCyc(p.nextVBlankPPUCyc)

	p.Screen.Draw(&p.screenBuffer)

	// The vblank flag is suppressed on the power-on frame.
	if p.frame > 0 {
		p.Reg.Status |= StatusVBlank
		if p.Reg.GenerateVBlankNMI() {
			*hitNMI = true
			logger.LogPPU("vblank NMI at frame %d", p.frame)
		}
	}
}

// colorize expands the palette-index span to final colors through
// palette RAM.
func (p *PPU) colorize(start, stop int) {
	for i := start; i < stop; i++ {
		p.screenBuffer[i] = p.Mem.ReadPalette(p.paletteBuffer[i])
	}
}

// MousePick logs the sprites under a screen pixel.
func (p *PPU) MousePick(x, y int) {
	for _, sprite := range p.sprites.MousePick(x, y) {
		logger.LogInfo("sprite %d at x=%d attr=$%02X", sprite.Index, sprite.X, sprite.Attr)
	}
}

// Frame returns the frame counter.
func (p *PPU) Frame() uint32 {
	return p.frame
}

// RenderingEnabled reports the mask register's rendering enables.
func (p *PPU) RenderingEnabled() bool {
	return p.Reg.RenderingEnabled()
}

// ReadRegister services a CPU read of one of the eight mapped ports.
func (p *PPU) ReadRegister(port uint16) uint8 {
	switch port % 8 {
	case 4:
		return p.sprites.ReadOAM(uint16(p.Reg.OAMAddr))
	case 7:
		addr := p.Reg.V & 0x3FFF
		if addr < 0x3F00 {
			value := p.readBuffer
			p.readBuffer = p.Mem.Read(addr)
			p.Reg.IncrPPUAddr()
			return value
		}
		// Palette reads bypass the buffer but still refill it from the
		// name-table byte underneath.
		value := p.Mem.Read(addr)
		p.Reg.IncrPPUAddr()
		p.readBuffer = p.Mem.ReadBypassPalette(addr)
		return value
	default:
		return p.Reg.Read(port)
	}
}

// WriteRegister services a CPU write of one of the eight mapped ports.
func (p *PPU) WriteRegister(port uint16, value uint8) {
	switch port % 8 {
	case 4:
		p.Reg.dynLatch = value
		p.sprites.WriteOAM(uint16(p.Reg.OAMAddr), value)
		p.Reg.IncrOAMAddr()
	case 7:
		p.Reg.dynLatch = value
		p.Mem.Write(p.Reg.V&0x3FFF, value)
		p.Reg.IncrPPUAddr()
	default:
		p.Reg.Write(port, value)
	}
}
