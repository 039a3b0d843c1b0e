package ppu

import (
	"github.com/famigo/pkg/screen"
)

// OAM attribute bits
const (
	attrPalette  = 0x03
	attrBehind   = 0x20
	attrFlipHorz = 0x40
	attrFlipVert = 0x80
)

// OAMEntry is one primary-OAM sprite: {y, tile, attribute, x}.
type OAMEntry struct {
	Y    uint8
	Tile uint8
	Attr uint8
	X    uint8
}

func (o *OAMEntry) isOnScanline(scanline, spriteHeight uint16) bool {
	y := uint16(o.Y)
	return y <= scanline && scanline < y+spriteHeight
}

// read and write index the entry's four bytes.
func (o *OAMEntry) read(idx uint16) uint8 {
	switch idx {
	case 0:
		return o.Y
	case 1:
		return o.Tile
	case 2:
		return o.Attr
	default:
		return o.X
	}
}

func (o *OAMEntry) write(idx uint16, value uint8) {
	switch idx {
	case 0:
		o.Y = value
	case 1:
		o.Tile = value
	case 2:
		o.Attr = value
	default:
		o.X = value
	}
}

// SpriteDetails is a secondary-OAM slot: the pre-fetched pattern row
// plus the state compositing needs. Index 0xFF marks an empty slot.
type SpriteDetails struct {
	Index uint8 // primary OAM index, for sprite-0 hit detection
	X     uint8
	Attr  uint8
	Tile  TilePattern
}

var noSprite = SpriteDetails{Index: 0xFF, X: 0xFF}

func (s *SpriteDetails) pixelAt(x uint16) PaletteIndex {
	fineX := x - uint16(s.X)
	if s.Attr&attrFlipHorz != 0 {
		fineX = 7 - fineX
	}
	colorID := s.Tile.ColorInPattern(fineX)
	return MakePaletteIndex(SpriteSet, s.Attr&attrPalette, colorID)
}

// mix applies sprite priority against the composed buffer.
func (s *SpriteDetails) mix(background, current, sprite PaletteIndex) PaletteIndex {
	inFront := s.Attr&attrBehind == 0
	if !sprite.IsTransparent() && !inFront && !background.IsTransparent() {
		return background
	}
	if current.IsTransparent() || (inFront && !sprite.IsTransparent()) {
		return sprite
	}
	return current
}

// SpriteRenderer owns primary OAM and the per-scanline secondary OAM
// cache.
type SpriteRenderer struct {
	primary   [64]OAMEntry
	secondary [screen.Height][8]SpriteDetails
}

// NewSpriteRenderer clears the secondary cache to empty slots.
func NewSpriteRenderer() *SpriteRenderer {
	s := &SpriteRenderer{}
	for sl := range s.secondary {
		for i := range s.secondary[sl] {
			s.secondary[sl][i] = noSprite
		}
	}
	return s
}

// ReadOAM reads primary OAM without side effects.
func (s *SpriteRenderer) ReadOAM(addr uint16) uint8 {
	return s.primary[addr/4%64].read(addr % 4)
}

// WriteOAM writes primary OAM.
func (s *SpriteRenderer) WriteOAM(addr uint16, value uint8) {
	s.primary[addr/4%64].write(addr%4, value)
}

// spriteFineY computes the row inside the sprite, honoring vertical flip.
func spriteFineY(size, scanline, spriteY uint16, flip bool) uint16 {
	scroll := scanline - spriteY
	if flip {
		return (size - 1) - scroll
	}
	return scroll
}

// buildDetails pre-fetches the pattern row for one selected sprite.
func (s *SpriteRenderer) buildDetails(idx int, scanline uint16, reg *Reg, mem *Memory) SpriteDetails {
	oam := &s.primary[idx]
	fineY := spriteFineY(reg.SpriteHeight(), scanline, uint16(oam.Y), oam.Attr&attrFlipVert != 0)

	var tile TilePattern
	if reg.TallSprites() {
		// The low bit of the tile id picks the pattern table; the top
		// and bottom halves use tile id and tile id + 1.
		tileTable := uint16(oam.Tile&0x01) << 12
		tileID := oam.Tile & 0xFE
		if fineY >= 8 {
			tileID++
			fineY -= 8
		}
		tile = mem.ReadTilePattern(tileID, fineY, tileTable)
	} else {
		tile = mem.ReadTilePattern(oam.Tile, fineY, reg.SpriteTable())
	}

	return SpriteDetails{
		Index: uint8(idx),
		X:     oam.X,
		Attr:  oam.Attr,
		Tile:  tile,
	}
}

// Evaluate fills the next scanline's secondary OAM: the first eight
// in-range primary sprites in index order, with patterns pre-fetched at
// the correct fine-y. A ninth in-range sprite sets the overflow flag.
func (s *SpriteRenderer) Evaluate(scanline uint16, reg *Reg, mem *Memory) {
	if scanline+1 >= screen.Height {
		return
	}
	line := &s.secondary[scanline+1]
	for i := range line {
		line[i] = noSprite
	}

	spriteHeight := reg.SpriteHeight()
	n := 0
	for idx := 0; idx < 64; idx++ {
		if !s.primary[idx].isOnScanline(scanline, spriteHeight) {
			continue
		}
		if n == 8 {
			reg.Status |= StatusSpriteOverflow
			return
		}
		line[n] = s.buildDetails(idx, scanline, reg, mem)
		n++
	}
}

// Render composites sprites over the pixel range [start, stop),
// setting the sprite-0 hit flag where sprite 0 overlaps opaque
// background in the composed buffer.
func (s *SpriteRenderer) Render(buffer *[screen.BufferSize]PaletteIndex, reg *Reg, start, stop int) {
	current := start
	for current < stop {
		scanline := current / screen.Width
		lineStart := scanline * screen.Width
		lineStop := lineStart + screen.Width

		segStop := stop
		if lineStop < segStop {
			segStop = lineStop
		}
		s.renderSegment(buffer, reg, scanline, current-lineStart, segStop-lineStart)
		current = lineStop
	}
}

func (s *SpriteRenderer) renderSegment(buffer *[screen.BufferSize]PaletteIndex, reg *Reg, scanline, start, stop int) {
	oamLine := &s.secondary[scanline]
	pixelLine := buffer[scanline*screen.Width : (scanline+1)*screen.Width]

	// Compositing reads the original background while writing sprite
	// pixels over it.
	var original [screen.Width]PaletteIndex
	copy(original[:], pixelLine)

	leftLimit := 0
	if reg.Mask&MaskSpriteLeft == 0 {
		leftLimit = 8
	}

	for i := len(oamLine) - 1; i >= 0; i-- {
		sprite := &oamLine[i]
		if sprite.Index == 0xFF {
			continue
		}

		segStart, segStop := intersect(start, stop, int(sprite.X), int(sprite.X)+8)
		if segStart >= segStop {
			continue
		}
		if segStart < leftLimit {
			segStart = leftLimit
			if segStart >= segStop {
				continue
			}
		}

		if sprite.Index == 0 {
			for x := segStart; x < segStop; x++ {
				if !original[x].IsTransparent() && !sprite.pixelAt(uint16(x)).IsTransparent() {
					reg.Status |= StatusSprite0Hit
					break
				}
			}
		}

		for x := segStart; x < segStop; x++ {
			pixelLine[x] = sprite.mix(original[x], pixelLine[x], sprite.pixelAt(uint16(x)))
		}
	}
}

// MousePick logs the secondary-OAM sprites covering a pixel; a debug
// aid driven by the front-end.
func (s *SpriteRenderer) MousePick(x, y int) []SpriteDetails {
	if y < 0 || y >= screen.Height {
		return nil
	}
	var hits []SpriteDetails
	for _, sprite := range s.secondary[y] {
		if sprite.Index == 0xFF {
			continue
		}
		if int(sprite.X) <= x && x < int(sprite.X)+8 {
			hits = append(hits, sprite)
		}
	}
	return hits
}

func intersect(aStart, aStop, bStart, bStop int) (int, int) {
	if bStart > aStart {
		aStart = bStart
	}
	if bStop < aStop {
		aStop = bStop
	}
	return aStart, aStop
}
