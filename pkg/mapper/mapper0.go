package mapper

import (
	"github.com/famigo/pkg/rom"
)

// Mapper0 (NROM) - fixed 16KB (mirrored) or 32KB PRG ROM, 8KB CHR
type Mapper0 struct {
	prgROM []byte
	chrMem []byte
	chrRAM bool
	prgRAM prgRAM
	mirror *[4]uint16
}

func newMapper0(r *rom.ROM) *Mapper0 {
	m := &Mapper0{
		prgROM: r.PRGROM,
		chrMem: r.CHRROM,
		prgRAM: newVolatileRAM(r.PRGRAMSize),
		mirror: mirrorTableFor(r.ScreenMode),
	}
	if len(m.chrMem) == 0 {
		m.chrMem = make([]byte, rom.CHRROMPageSize)
		m.chrRAM = true
	}
	return m
}

// ReadPRG reads from PRG RAM or ROM
func (m *Mapper0) ReadPRG(addr uint16) uint8 {
	if addr >= 0x8000 {
		// 16KB images mirror across $8000-$FFFF
		return m.prgROM[int(addr-0x8000)%len(m.prgROM)]
	}
	if addr >= 0x6000 {
		return m.prgRAM.Read(addr - 0x6000)
	}
	return 0
}

// WritePRG writes to PRG RAM; ROM writes are ignored
func (m *Mapper0) WritePRG(addr uint16, value uint8) {
	if addr >= 0x8000 {
		return
	}
	if addr >= 0x6000 {
		m.prgRAM.Write(addr-0x6000, value)
	}
}

// ReadCHR reads from CHR ROM/RAM
func (m *Mapper0) ReadCHR(addr uint16) uint8 {
	return m.chrMem[int(addr)%len(m.chrMem)]
}

// WriteCHR writes to CHR RAM; CHR ROM writes are ignored
func (m *Mapper0) WriteCHR(addr uint16, value uint8) {
	if m.chrRAM {
		m.chrMem[int(addr)%len(m.chrMem)] = value
	}
}

// MirrorTable returns the header-selected mirroring table
func (m *Mapper0) MirrorTable() *[4]uint16 {
	return m.mirror
}

// SetBankChangeHook is a no-op; NROM never remaps
func (m *Mapper0) SetBankChangeHook(func()) {}
