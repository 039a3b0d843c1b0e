package ppu

import (
	"github.com/famigo/pkg/screen"
)

// tilesPerLine covers a full scanline plus the partial tile fine-x
// scroll can drag in.
const tilesPerLine = 34

// BackgroundRenderer caches the tile patterns and attribute palettes
// for each scanline, then draws pixel segments from the cache. The
// caches are filled lazily as RunTo sweeps across the frame, so every
// fetch sees the scroll registers as of the moment its pixels were
// emitted.
type BackgroundRenderer struct {
	tile    [screen.Height][tilesPerLine]TilePattern
	palette [screen.Height][tilesPerLine]uint8
}

// Render evaluates and draws the pixel range [start, stop).
func (b *BackgroundRenderer) Render(buffer *[screen.BufferSize]PaletteIndex, start, stop int, reg *Reg, mem *Memory) {
	b.walkSegments(start, stop, func(scanline, segStart, segStop int) {
		b.evaluateSegment(reg, mem, scanline, segStart, segStop)
	})
	b.walkSegments(start, stop, func(scanline, segStart, segStop int) {
		b.drawSegment(buffer, reg, scanline, segStart, segStop)
	})
}

// walkSegments splits a pixel range into per-scanline segments with
// in-line coordinates.
func (b *BackgroundRenderer) walkSegments(start, stop int, f func(scanline, segStart, segStop int)) {
	current := start
	for current < stop {
		scanline := current / screen.Width
		lineStart := scanline * screen.Width
		lineStop := lineStart + screen.Width

		segStop := stop
		if lineStop < segStop {
			segStop = lineStop
		}
		f(scanline, current-lineStart, segStop-lineStart)
		current = lineStop
	}
}

// evaluateSegment fetches the name-table, attribute and pattern bytes
// covering the segment's tile slots.
func (b *BackgroundRenderer) evaluateSegment(reg *Reg, mem *Memory, scanline, start, stop int) {
	fineX := int(reg.ScrollXFine())
	slotStart := (start + fineX) / 8
	slotStop := (stop - 1 + fineX) / 8

	// Vertical scroll: wrap at 240 flips the vertical name-table bit.
	worldY := scanline + int(reg.ScrollY())
	vFlip := uint16(0)
	for worldY >= screen.Height {
		worldY -= screen.Height
		vFlip ^= 2
	}
	tileY := uint16(worldY / 8)
	fineY := uint16(worldY % 8)

	tileLine := &b.tile[scanline]
	paletteLine := &b.palette[scanline]

	for slot := slotStart; slot <= slotStop; slot++ {
		worldTileX := reg.ScrollXCoarse() + uint16(slot)
		nt := reg.NametableNum() ^ vFlip
		if (worldTileX/32)%2 == 1 {
			nt ^= 1
		}
		worldTileX %= 32

		ntAddr := 0x2000 | nt<<10 | tileY<<5 | worldTileX
		tileID := mem.Read(ntAddr)
		tileLine[slot] = mem.ReadTilePattern(tileID, fineY, reg.BackgroundTable())

		attrAddr := 0x23C0 | nt<<10 | (tileY>>2)<<3 | worldTileX>>2
		attr := mem.Read(attrAddr)
		if tileY&0x02 != 0 {
			attr >>= 4
		}
		if worldTileX&0x02 != 0 {
			attr >>= 2
		}
		paletteLine[slot] = attr & 0x03
	}
}

// drawSegment converts cached tiles into per-pixel palette indices.
func (b *BackgroundRenderer) drawSegment(buffer *[screen.BufferSize]PaletteIndex, reg *Reg, scanline, start, stop int) {
	tileLine := &b.tile[scanline]
	paletteLine := &b.palette[scanline]
	pixelLine := buffer[scanline*screen.Width : (scanline+1)*screen.Width]

	fineX := int(reg.ScrollXFine())
	maskLeft := reg.Mask&MaskBGLeft == 0

	for pixel := start; pixel < stop; pixel++ {
		if maskLeft && pixel < 8 {
			pixelLine[pixel] = Transparent
			continue
		}
		offset := pixel + fineX
		pattern := tileLine[offset/8]
		colorID := pattern.ColorInPattern(uint16(offset) & 0x07)
		pixelLine[pixel] = MakePaletteIndex(BackgroundSet, paletteLine[offset/8], colorID)
	}
}
