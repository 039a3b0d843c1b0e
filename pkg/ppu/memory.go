package ppu

import (
	"fmt"

	"github.com/famigo/pkg/mapper"
	"github.com/famigo/pkg/screen"
)

// PaletteIndex is a packed palette-RAM address: bit 4 selects the
// sprite set, bits 3-2 the palette id, bits 1-0 the color id. Any
// value with the low two bits zero aliases the universal background
// color and is packed as zero.
type PaletteIndex uint8

// Transparent is the universal background color.
const Transparent PaletteIndex = 0

// Palette sets
const (
	BackgroundSet uint8 = 0x00
	SpriteSet     uint8 = 0x10
)

// MakePaletteIndex packs {set, palette id, color id}; color 0 collapses
// to the universal background regardless of the other fields.
func MakePaletteIndex(set, paletteID, colorID uint8) PaletteIndex {
	if colorID == 0 {
		return Transparent
	}
	return PaletteIndex(set | (paletteID&0x03)<<2 | colorID&0x03)
}

// IsTransparent reports whether the pixel shows the universal background.
func (p PaletteIndex) IsTransparent() bool {
	return p == Transparent
}

// TilePattern is the two pattern-table bytes of one tile row.
type TilePattern struct {
	Lo uint8
	Hi uint8
}

// ColorInPattern extracts the 2-bit color id at a fine-x position.
func (t TilePattern) ColorInPattern(fineX uint16) uint8 {
	shift := 7 - (fineX & 7)
	lo := (t.Lo >> shift) & 0x01
	hi := ((t.Hi >> shift) & 0x01) << 1
	return lo | hi
}

// Memory is the PPU's address space: pattern tables through the mapper,
// name tables in VRAM behind the mirroring table, and palette RAM.
type Memory struct {
	cart    mapper.Mapper
	vram    [0x1000]uint8
	palette [0x20]screen.Color
}

// NewMemory binds the PPU memory map to a mapper.
func NewMemory(cart mapper.Mapper) *Memory {
	return &Memory{cart: cart}
}

// translate maps a name-table address to a physical VRAM offset using
// the mapper's mirroring table.
func (m *Memory) translate(addr uint16) int {
	addr &= 0x0FFF
	logical := addr / 0x0400
	page := m.cart.MirrorTable()[logical]
	return int(page)*0x0400 + int(addr%0x0400)
}

// Read reads pattern, name-table or palette space.
func (m *Memory) Read(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return m.cart.ReadCHR(addr)
	case addr < 0x3F00:
		return m.ReadBypassPalette(addr)
	case addr < 0x4000:
		return m.readPaletteMem(addr).Bits()
	}
	panic(fmt.Sprintf("invalid PPU address access: $%04X", addr))
}

// Write writes pattern, name-table or palette space.
func (m *Memory) Write(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.cart.WriteCHR(addr, value)
	case addr < 0x3F00:
		m.vram[m.translate(addr)] = value
	case addr < 0x4000:
		m.writePaletteMem(addr, screen.ColorFromBits(value))
	default:
		panic(fmt.Sprintf("invalid PPU address access: $%04X", addr))
	}
}

// ReadBypassPalette reads the name-table byte underneath a palette
// address; $2007 palette reads refill the read buffer through it.
func (m *Memory) ReadBypassPalette(addr uint16) uint8 {
	return m.vram[m.translate(addr)]
}

// readPaletteMem resolves the $10/$14/$18/$1C aliases on read.
func (m *Memory) readPaletteMem(addr uint16) screen.Color {
	switch idx := addr & 0x1F; idx {
	case 0x10:
		return m.palette[0x00]
	case 0x14:
		return m.palette[0x04]
	case 0x18:
		return m.palette[0x08]
	case 0x1C:
		return m.palette[0x0C]
	default:
		return m.palette[idx]
	}
}

// writePaletteMem resolves the aliases on write.
func (m *Memory) writePaletteMem(addr uint16, value screen.Color) {
	switch idx := addr & 0x1F; idx {
	case 0x10:
		m.palette[0x00] = value
	case 0x14:
		m.palette[0x04] = value
	case 0x18:
		m.palette[0x08] = value
	case 0x1C:
		m.palette[0x0C] = value
	default:
		m.palette[idx] = value
	}
}

// ReadPalette expands a packed palette index into its final color.
func (m *Memory) ReadPalette(idx PaletteIndex) screen.Color {
	return m.readPaletteMem(uint16(idx))
}

// ReadTilePattern fetches both pattern planes of one tile row.
func (m *Memory) ReadTilePattern(tileID uint8, fineY uint16, tileTable uint16) TilePattern {
	base := tileTable | uint16(tileID)<<4 | fineY
	return TilePattern{
		Lo: m.Read(base),
		Hi: m.Read(base | 8),
	}
}
