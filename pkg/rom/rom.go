package rom

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// iNES 1.0 layout constants
const (
	HeaderLength   = 16
	PRGROMPageSize = 16384
	CHRROMPageSize = 8192
	PRGRAMPageSize = 8192
	TrainerLength  = 512
)

// Parse errors for the RomFormat kind
var (
	ErrDamagedHeader    = errors.New("ROM data had missing or damaged header")
	ErrUnexpectedEnd    = errors.New("unexpected end of ROM data")
	ErrNes2NotSupported = errors.New("NES 2.0 ROMs are not supported")
)

// UnsupportedMapperError is returned when the header names a mapper the
// emulator does not implement.
type UnsupportedMapperError struct {
	Mapper uint8
}

func (e *UnsupportedMapperError) Error() string {
	return fmt.Sprintf("unsupported mapper: %d", e.Mapper)
}

// ScreenMode is the name-table mirroring topology requested by the header
// (or later by the mapper).
type ScreenMode int

const (
	Horizontal ScreenMode = iota
	Vertical
	FourScreen
	OneScreenLow
	OneScreenHigh
)

// System identifies the arcade variants flagged in byte 7.
type System int

const (
	SystemNES System = iota
	SystemVs
	SystemPC10
)

// TvFormat is the video standard flagged in byte 9.
type TvFormat int

const (
	NTSC TvFormat = iota
	PAL
)

// ROM is a parsed cartridge image.
type ROM struct {
	Mapper     uint8
	ScreenMode ScreenMode
	SRAM       bool
	System     System
	TvFormat   TvFormat

	PRGROM     []byte
	CHRROM     []byte
	PRGRAMSize int
}

// header flag bits
const (
	flag6Vertical   = 0x01
	flag6SRAM       = 0x02
	flag6Trainer    = 0x04
	flag6FourScreen = 0x08

	flag7Vs   = 0x01
	flag7PC10 = 0x02

	flag9PAL = 0x01
)

// Parse decodes an iNES 1.0 image. NES 2.0 images are rejected.
func Parse(data []byte) (*ROM, error) {
	if len(data) < HeaderLength {
		return nil, ErrUnexpectedEnd
	}
	if data[0] != 'N' || data[1] != 'E' || data[2] != 'S' || data[3] != 0x1A {
		return nil, ErrDamagedHeader
	}

	prgPages := int(data[4])
	chrPages := int(data[5])
	flags6 := data[6]
	flags7 := data[7]
	prgRAMPages := int(data[8])
	flags9 := data[9]

	// Bits 2-3 of byte 7 equal to 0b10 is the NES 2.0 signature.
	if flags7&0x0C == 0x08 {
		return nil, ErrNes2NotSupported
	}

	// Bytes 10-15 must be zero residue in a well-formed 1.0 header.
	for _, b := range data[10:16] {
		if b != 0 {
			return nil, ErrDamagedHeader
		}
	}

	offset := HeaderLength
	if flags6&flag6Trainer != 0 {
		offset += TrainerLength
	}

	prgLen := prgPages * PRGROMPageSize
	chrLen := chrPages * CHRROMPageSize
	if len(data) < offset+prgLen+chrLen {
		return nil, ErrUnexpectedEnd
	}

	r := &ROM{
		Mapper: (flags7 & 0xF0) | (flags6 >> 4),
		SRAM:   flags6&flag6SRAM != 0,
		PRGROM: data[offset : offset+prgLen],
		CHRROM: data[offset+prgLen : offset+prgLen+chrLen],
	}

	switch {
	case flags6&flag6FourScreen != 0:
		r.ScreenMode = FourScreen
	case flags6&flag6Vertical != 0:
		r.ScreenMode = Vertical
	default:
		r.ScreenMode = Horizontal
	}

	switch {
	case flags7&flag7Vs != 0:
		r.System = SystemVs
	case flags7&flag7PC10 != 0:
		r.System = SystemPC10
	default:
		r.System = SystemNES
	}

	if flags9&flag9PAL != 0 {
		r.TvFormat = PAL
	}

	if prgRAMPages == 0 {
		prgRAMPages = 1
	}
	r.PRGRAMSize = prgRAMPages * PRGRAMPageSize

	return r, nil
}

// Load reads and parses a ROM file from disk.
func Load(path string) (*ROM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ROM file %s", path)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ROM file %s", path)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ROM file %s", path)
	}
	return r, nil
}
