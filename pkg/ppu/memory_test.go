package ppu

import (
	"testing"

	"github.com/famigo/pkg/rom"
)

func TestPPUDataReadsAreBuffered(t *testing.T) {
	p := newTestPPU(t)

	p.Reg.V = 0x2ABC
	p.WriteRegister(0x2007, 12)
	p.Reg.V = 0x2ABC
	p.ReadRegister(0x2007) // dummy read fills the buffer
	if got := p.ReadRegister(0x2007); got != 12 {
		t.Errorf("Expected 12, got %d", got)
	}
}

func TestPaletteReadsBypassBuffer(t *testing.T) {
	p := newTestPPU(t)

	p.Reg.V = 0x3F16
	p.WriteRegister(0x2007, 21)
	p.Reg.V = 0x3F16
	if got := p.ReadRegister(0x2007); got != 21 {
		t.Errorf("Palette reads need no dummy read; expected 21, got %d", got)
	}
}

func TestPaletteReadRefillsBufferFromNametable(t *testing.T) {
	p := newTestPPU(t)

	// $3F16 sits over name-table byte $2F16.
	p.Reg.V = 0x2F16
	p.WriteRegister(0x2007, 0x77)
	p.Reg.V = 0x3F16
	p.ReadRegister(0x2007)
	if p.readBuffer != 0x77 {
		t.Errorf("Palette read must refill the buffer from the underlying name table, got $%02X", p.readBuffer)
	}
}

func TestPaletteRoundTripKeepsLow6Bits(t *testing.T) {
	p := newTestPPU(t)

	for addr := uint16(0x3F00); addr < 0x3F20; addr++ {
		p.Reg.V = addr
		p.WriteRegister(0x2007, 0xFF)
		p.Reg.V = addr
		if got := p.ReadRegister(0x2007); got != 0x3F {
			t.Fatalf("$%04X: expected $3F, got $%02X", addr, got)
		}
	}
}

func TestPaletteMirrors(t *testing.T) {
	p := newTestPPU(t)

	mirrors := []uint16{0x3F10, 0x3F14, 0x3F18, 0x3F1C}
	targets := []uint16{0x3F00, 0x3F04, 0x3F08, 0x3F0C}

	for i := range mirrors {
		p.Reg.V = targets[i]
		p.WriteRegister(0x2007, 12)
		p.Reg.V = mirrors[i]
		if got := p.ReadRegister(0x2007); got != 12 {
			t.Errorf("$%04X should alias $%04X", mirrors[i], targets[i])
		}

		p.Reg.V = mirrors[i]
		p.WriteRegister(0x2007, 21)
		p.Reg.V = targets[i]
		if got := p.ReadRegister(0x2007); got != 21 {
			t.Errorf("$%04X should alias $%04X", targets[i], mirrors[i])
		}
	}
}

func assertMirrored(t *testing.T, p *PPU, tbl1, tbl2 uint16) {
	t.Helper()
	addr1 := 0x2000 + 0x400*tbl1 + 0x123
	addr2 := 0x2000 + 0x400*tbl2 + 0x123

	p.Mem.Write(addr1, 0xFF)
	if p.Mem.Read(addr2) != 0xFF {
		t.Errorf("Pages %d and %d should mirror", tbl1, tbl2)
	}
	p.Mem.Write(addr2, 0x61)
	if p.Mem.Read(addr1) != 0x61 {
		t.Errorf("Pages %d and %d should mirror both ways", tbl1, tbl2)
	}
}

func assertNotMirrored(t *testing.T, p *PPU, tbl1, tbl2 uint16) {
	t.Helper()
	addr1 := 0x2000 + 0x400*tbl1 + 0x123
	addr2 := 0x2000 + 0x400*tbl2 + 0x123

	p.Mem.Write(addr1, 0x00)
	p.Mem.Write(addr2, 0x00)
	p.Mem.Write(addr1, 0xFF)
	if p.Mem.Read(addr2) != 0x00 {
		t.Errorf("Pages %d and %d should not mirror", tbl1, tbl2)
	}
}

func TestHorizontalMirroring(t *testing.T) {
	p := newTestPPUWithMirroring(t, rom.Horizontal)
	assertMirrored(t, p, 0, 1)
	assertMirrored(t, p, 2, 3)
	assertNotMirrored(t, p, 0, 2)
	assertNotMirrored(t, p, 1, 3)
}

func TestVerticalMirroring(t *testing.T) {
	p := newTestPPUWithMirroring(t, rom.Vertical)
	assertMirrored(t, p, 0, 2)
	assertMirrored(t, p, 1, 3)
	assertNotMirrored(t, p, 0, 1)
	assertNotMirrored(t, p, 2, 3)
}

func TestFourScreenMirroring(t *testing.T) {
	p := newTestPPUWithMirroring(t, rom.FourScreen)
	assertNotMirrored(t, p, 0, 1)
	assertNotMirrored(t, p, 1, 2)
	assertNotMirrored(t, p, 2, 3)
}

func TestNametableTopMirrorsAt3000(t *testing.T) {
	p := newTestPPU(t)

	p.Reg.V = 0x2EFC
	p.WriteRegister(0x2007, 128)
	p.Reg.V = 0x3EFC
	p.ReadRegister(0x2007) // dummy
	if got := p.ReadRegister(0x2007); got != 128 {
		t.Errorf("$3EFC should mirror $2EFC, got %d", got)
	}
}

func TestMakePaletteIndexCollapsesColorZero(t *testing.T) {
	if MakePaletteIndex(SpriteSet, 3, 0) != Transparent {
		t.Error("Color 0 must collapse to the universal background")
	}
	if MakePaletteIndex(SpriteSet, 2, 3) != PaletteIndex(0x1B) {
		t.Errorf("Expected $1B, got $%02X", MakePaletteIndex(SpriteSet, 2, 3))
	}
}

func TestTilePatternColorExtraction(t *testing.T) {
	pattern := TilePattern{Lo: 0x80, Hi: 0x01}

	if got := pattern.ColorInPattern(0); got != 1 {
		t.Errorf("Expected color 1 at fine-x 0, got %d", got)
	}
	if got := pattern.ColorInPattern(7); got != 2 {
		t.Errorf("Expected color 2 at fine-x 7, got %d", got)
	}
	if got := pattern.ColorInPattern(3); got != 0 {
		t.Errorf("Expected color 0 at fine-x 3, got %d", got)
	}
}
