package mapper

import (
	"github.com/famigo/pkg/rom"
)

// Mapper translates CPU and PPU addresses into cartridge storage and
// controls name-table mirroring. PRG covers $4020-$FFFF (PRG RAM at
// $6000-$7FFF, PRG ROM at $8000-$FFFF); CHR covers $0000-$1FFF.
type Mapper interface {
	ReadPRG(addr uint16) uint8
	WritePRG(addr uint16, value uint8)
	ReadCHR(addr uint16) uint8
	WriteCHR(addr uint16, value uint8)

	// MirrorTable maps each logical name-table page to a physical 1KB page.
	MirrorTable() *[4]uint16

	// SetBankChangeHook registers a callback invoked whenever the PRG ROM
	// bank mapping changes. The JIT dispatcher uses it to invalidate
	// compiled blocks.
	SetBankChangeHook(hook func())
}

// Standard mirroring topologies as physical-page lookup tables.
var (
	mirrorHorizontal   = [4]uint16{0, 0, 1, 1}
	mirrorVertical     = [4]uint16{0, 1, 0, 1}
	mirrorOneScreenLow = [4]uint16{0, 0, 0, 0}
	mirrorOneScreenHi  = [4]uint16{1, 1, 1, 1}
	mirrorFourScreen   = [4]uint16{0, 1, 2, 3}
)

// mirrorTableFor returns the lookup table for a screen mode.
func mirrorTableFor(mode rom.ScreenMode) *[4]uint16 {
	switch mode {
	case rom.Horizontal:
		return &mirrorHorizontal
	case rom.Vertical:
		return &mirrorVertical
	case rom.OneScreenLow:
		return &mirrorOneScreenLow
	case rom.OneScreenHigh:
		return &mirrorOneScreenHi
	case rom.FourScreen:
		return &mirrorFourScreen
	}
	return &mirrorHorizontal
}

// New builds the mapper named by the ROM header. romPath locates the
// battery file for cartridges with battery-backed PRG RAM.
func New(r *rom.ROM, romPath string) (Mapper, error) {
	switch r.Mapper {
	case 0:
		return newMapper0(r), nil
	case 1:
		return newMapper1(r, romPath)
	default:
		return nil, &rom.UnsupportedMapperError{Mapper: r.Mapper}
	}
}

// prgRAM abstracts volatile vs battery-backed work RAM.
type prgRAM interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// volatileRAM is plain work RAM that dies with the process.
type volatileRAM struct {
	data []byte
}

func newVolatileRAM(size int) *volatileRAM {
	return &volatileRAM{data: make([]byte, size)}
}

func (v *volatileRAM) Read(addr uint16) uint8 {
	return v.data[int(addr)%len(v.data)]
}

func (v *volatileRAM) Write(addr uint16, value uint8) {
	v.data[int(addr)%len(v.data)] = value
}
