package nes

import (
	"github.com/famigo/pkg/apu"
	"github.com/famigo/pkg/audio"
	"github.com/famigo/pkg/cpu"
	"github.com/famigo/pkg/input"
	"github.com/famigo/pkg/logger"
	"github.com/famigo/pkg/mapper"
	"github.com/famigo/pkg/ppu"
	"github.com/famigo/pkg/rom"
	"github.com/famigo/pkg/screen"
)

// Emulator owns the whole machine. The CPU owns the devices and drives
// the master clock; the emulator is the front-end handle.
type Emulator struct {
	CPU *cpu.CPU
}

// EmulatorBuilder assembles an emulator around host sinks. NewBuilder
// fills every sink with a discarding default, so tests only replace what
// they observe; Build uses the fields as given.
type EmulatorBuilder struct {
	ROM     *rom.ROM
	ROMPath string

	Screen   screen.Screen
	Audio    audio.Out
	Input    input.IO
	Settings Settings
}

// NewBuilder starts a builder with dummy sinks.
func NewBuilder(r *rom.ROM, romPath string, settings Settings) *EmulatorBuilder {
	return &EmulatorBuilder{
		ROM:      r,
		ROMPath:  romPath,
		Screen:   &screen.Dummy{},
		Audio:    &audio.Dummy{},
		Input:    &input.Dummy{},
		Settings: settings,
	}
}

// Build wires the mapper, PPU, APU and CPU together.
func (b *EmulatorBuilder) Build() (*Emulator, error) {
	m, err := mapper.New(b.ROM, b.ROMPath)
	if err != nil {
		return nil, err
	}

	p := ppu.New(m, b.Screen)
	a := apu.New(b.Audio)

	c := cpu.New(p, a, b.Input, m)
	c.JIT = b.Settings.JIT
	c.TraceCPU = b.Settings.TraceCPU
	cpu.DisasmFunctions = b.Settings.DisassembleFunctions
	c.Init(b.Settings.ResetToVector)

	logger.LogInfo("emulator assembled: mapper %d, PRG %dKB, CHR %dKB",
		b.ROM.Mapper, len(b.ROM.PRGROM)/1024, len(b.ROM.CHRROM)/1024)

	return &Emulator{CPU: c}, nil
}

// RunFrame executes until the next video frame completes or the CPU
// halts.
func (e *Emulator) RunFrame() {
	e.CPU.RunFrame()
}

// Halted reports whether a KIL opcode stopped the machine.
func (e *Emulator) Halted() bool {
	return e.CPU.Halted()
}
