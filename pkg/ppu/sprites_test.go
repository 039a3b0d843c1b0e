package ppu

import (
	"testing"

	"github.com/famigo/pkg/screen"
)

func TestSpriteMixPriorities(t *testing.T) {
	front := &SpriteDetails{Attr: 0}
	behind := &SpriteDetails{Attr: attrBehind}

	bg := MakePaletteIndex(BackgroundSet, 1, 2)
	spr := MakePaletteIndex(SpriteSet, 0, 1)

	// Sprite behind an opaque background: background wins.
	if got := behind.mix(bg, bg, spr); got != bg {
		t.Errorf("Behind + opaque bg: expected bg, got $%02X", got)
	}
	// Sprite in front: sprite wins.
	if got := front.mix(bg, bg, spr); got != spr {
		t.Errorf("Front: expected sprite, got $%02X", got)
	}
	// Transparent current pixel: sprite shows regardless of priority.
	if got := behind.mix(Transparent, Transparent, spr); got != spr {
		t.Errorf("Transparent current: expected sprite, got $%02X", got)
	}
	// Transparent sprite pixel: current survives.
	if got := front.mix(bg, bg, Transparent); got != bg {
		t.Errorf("Transparent sprite: expected current, got $%02X", got)
	}
}

func TestSpriteEvaluationPicksFirstEight(t *testing.T) {
	p := newTestPPU(t)

	// Ten sprites on scanline 50; all other entries (y=0) cover 0-7.
	for i := 0; i < 10; i++ {
		base := uint16(i * 4)
		p.sprites.WriteOAM(base+0, 50)
		p.sprites.WriteOAM(base+1, uint8(i))
		p.sprites.WriteOAM(base+3, uint8(i*8))
	}

	p.sprites.Evaluate(50, &p.Reg, p.Mem)

	line := &p.sprites.secondary[51]
	for slot := 0; slot < 8; slot++ {
		if line[slot].Index != uint8(slot) {
			t.Errorf("slot %d: expected primary index %d, got %d", slot, slot, line[slot].Index)
		}
	}
	if p.Reg.Status&StatusSpriteOverflow == 0 {
		t.Error("A ninth in-range sprite must set the overflow flag")
	}
}

func TestSpriteEvaluationOverflowNotSetForEight(t *testing.T) {
	p := newTestPPU(t)

	for i := 0; i < 8; i++ {
		p.sprites.WriteOAM(uint16(i*4), 100)
	}
	p.sprites.Evaluate(100, &p.Reg, p.Mem)
	if p.Reg.Status&StatusSpriteOverflow != 0 {
		t.Error("Exactly eight sprites must not set the overflow flag")
	}
}

func TestSpriteFineYFlip(t *testing.T) {
	if got := spriteFineY(8, 53, 50, false); got != 3 {
		t.Errorf("Expected row 3, got %d", got)
	}
	if got := spriteFineY(8, 53, 50, true); got != 4 {
		t.Errorf("Expected flipped row 4, got %d", got)
	}
	if got := spriteFineY(16, 60, 50, true); got != 5 {
		t.Errorf("Expected tall flipped row 5, got %d", got)
	}
}

// solidTile paints every row of a tile with color id 1.
func solidTile(p *PPU, table uint16, tileID uint8) {
	base := table | uint16(tileID)<<4
	for row := uint16(0); row < 8; row++ {
		p.Mem.Write(base+row, 0xFF)
	}
}

func TestSprite0HitAgainstComposedBackground(t *testing.T) {
	p := newTestPPU(t)

	// Opaque background everywhere: name tables are zero-filled, so
	// tile 0 covers the screen.
	solidTile(p, 0x0000, 0)
	// Sprite 0 uses tile 1.
	solidTile(p, 0x0000, 1)

	p.sprites.WriteOAM(0, 49)  // y: appears on scanlines 50-57
	p.sprites.WriteOAM(1, 1)   // tile
	p.sprites.WriteOAM(2, 0)   // attr
	p.sprites.WriteOAM(3, 100) // x

	p.Reg.Mask = MaskBGShow | MaskSpriteShow | MaskBGLeft | MaskSpriteLeft

	p.RunTo(cpuCycleAt(1, 241, 2))
	if p.Reg.Status&StatusSprite0Hit == 0 {
		t.Error("Sprite 0 over opaque background must set the hit flag")
	}
}

func TestNoSprite0HitOnTransparentBackground(t *testing.T) {
	p := newTestPPU(t)

	// Background tile 0 stays blank; sprite tile is solid.
	solidTile(p, 0x0000, 1)

	p.sprites.WriteOAM(0, 49)
	p.sprites.WriteOAM(1, 1)
	p.sprites.WriteOAM(2, 0)
	p.sprites.WriteOAM(3, 100)

	p.Reg.Mask = MaskBGShow | MaskSpriteShow | MaskBGLeft | MaskSpriteLeft

	p.RunTo(cpuCycleAt(1, 241, 2))
	if p.Reg.Status&StatusSprite0Hit != 0 {
		t.Error("Sprite 0 over transparent background must not set the hit flag")
	}
}

func TestSpritePixelLandsInBuffer(t *testing.T) {
	p := newTestPPU(t)

	solidTile(p, 0x0000, 1)
	// Non-zero sprite palette so the packed index is distinctive.
	p.sprites.WriteOAM(0, 49)
	p.sprites.WriteOAM(1, 1)
	p.sprites.WriteOAM(2, 2) // palette 2
	p.sprites.WriteOAM(3, 100)

	p.Reg.Mask = MaskSpriteShow | MaskSpriteLeft

	p.RunTo(cpuCycleAt(1, 241, 2))

	want := MakePaletteIndex(SpriteSet, 2, 1)
	got := p.paletteBuffer[50*screen.Width+103]
	if got != want {
		t.Errorf("Expected sprite pixel $%02X, got $%02X", want, got)
	}
}

func TestSpriteHorizontalFlip(t *testing.T) {
	p := newTestPPU(t)

	// Tile 1: only the leftmost pixel of each row is set.
	base := uint16(1) << 4
	for row := uint16(0); row < 8; row++ {
		p.Mem.Write(base+row, 0x80)
	}

	p.sprites.WriteOAM(0, 49)
	p.sprites.WriteOAM(1, 1)
	p.sprites.WriteOAM(2, attrFlipHorz)
	p.sprites.WriteOAM(3, 100)

	p.Reg.Mask = MaskSpriteShow | MaskSpriteLeft

	p.RunTo(cpuCycleAt(1, 241, 2))

	line := p.paletteBuffer[50*screen.Width:]
	if line[100] != Transparent {
		t.Error("Flipped sprite must not show at its left edge")
	}
	if line[107].IsTransparent() {
		t.Error("Flipped sprite must show at its right edge")
	}
}
