package rom

import (
	"testing"

	"github.com/pkg/errors"
)

// romBuilder assembles iNES images for tests.
type romBuilder struct {
	header []byte
	prgROM []byte
	chrROM []byte
}

func newROMBuilder() *romBuilder {
	header := make([]byte, HeaderLength)
	copy(header, []byte{'N', 'E', 'S', 0x1A})
	return &romBuilder{header: header}
}

func (b *romBuilder) setPRGPageCount(count int) {
	b.header[4] = uint8(count)
	b.prgROM = make([]byte, count*PRGROMPageSize)
	for i := range b.prgROM {
		b.prgROM[i] = uint8(i % 251)
	}
}

func (b *romBuilder) setCHRPageCount(count int) {
	b.header[5] = uint8(count)
	b.chrROM = make([]byte, count*CHRROMPageSize)
	for i := range b.chrROM {
		b.chrROM[i] = uint8(i % 239)
	}
}

func (b *romBuilder) setMapper(mapper uint8) {
	b.header[6] = (b.header[6] & 0x0F) | ((mapper & 0x0F) << 4)
	b.header[7] = (b.header[7] & 0x0F) | (mapper & 0xF0)
}

func (b *romBuilder) build() []byte {
	buf := append([]byte{}, b.header...)
	buf = append(buf, b.prgROM...)
	buf = append(buf, b.chrROM...)
	return buf
}

func (b *romBuilder) buildROM(t *testing.T) *ROM {
	t.Helper()
	r, err := Parse(b.build())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return r
}

func TestParseFailsOnEmptyInput(t *testing.T) {
	if _, err := Parse(nil); !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("Expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestParseFailsOnBadMagic(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	buf := b.build()
	buf[3] = '0'
	if _, err := Parse(buf); !errors.Is(err, ErrDamagedHeader) {
		t.Errorf("Expected ErrDamagedHeader, got %v", err)
	}
}

func TestParseFailsOnTruncatedInput(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(2)
	buf := b.build()
	if _, err := Parse(buf[:300]); !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("Expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestParseFailsOnHeaderResidue(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	buf := b.build()
	buf[12] = 0x55
	if _, err := Parse(buf); !errors.Is(err, ErrDamagedHeader) {
		t.Errorf("Expected ErrDamagedHeader, got %v", err)
	}
}

func TestParseFailsOnNES2(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	b.header[7] |= 0x08
	if _, err := Parse(b.build()); !errors.Is(err, ErrNes2NotSupported) {
		t.Errorf("Expected ErrNes2NotSupported, got %v", err)
	}
}

func TestPRGAndCHRContents(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(2)
	b.setCHRPageCount(1)
	r := b.buildROM(t)

	if len(r.PRGROM) != 2*PRGROMPageSize {
		t.Errorf("Expected %d PRG bytes, got %d", 2*PRGROMPageSize, len(r.PRGROM))
	}
	if len(r.CHRROM) != CHRROMPageSize {
		t.Errorf("Expected %d CHR bytes, got %d", CHRROMPageSize, len(r.CHRROM))
	}
	for i, want := range b.prgROM {
		if r.PRGROM[i] != want {
			t.Fatalf("PRG byte %d: expected %02X, got %02X", i, want, r.PRGROM[i])
		}
	}
	for i, want := range b.chrROM {
		if r.CHRROM[i] != want {
			t.Fatalf("CHR byte %d: expected %02X, got %02X", i, want, r.CHRROM[i])
		}
	}
}

func TestTrainerIsSkipped(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	b.header[6] |= flag6Trainer
	buf := append([]byte{}, b.header...)
	buf = append(buf, make([]byte, TrainerLength)...)
	buf = append(buf, b.prgROM...)

	r, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if r.PRGROM[0] != b.prgROM[0] || r.PRGROM[100] != b.prgROM[100] {
		t.Error("PRG ROM not aligned past the trainer")
	}
}

func TestScreenMode(t *testing.T) {
	cases := []struct {
		name   string
		flags6 uint8
		want   ScreenMode
	}{
		{"horizontal", 0, Horizontal},
		{"vertical", flag6Vertical, Vertical},
		{"four-screen", flag6FourScreen, FourScreen},
		{"four-screen wins over vertical", flag6FourScreen | flag6Vertical, FourScreen},
	}
	for _, tc := range cases {
		b := newROMBuilder()
		b.setPRGPageCount(1)
		b.header[6] |= tc.flags6
		if got := b.buildROM(t).ScreenMode; got != tc.want {
			t.Errorf("%s: expected mode %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestSRAMFlag(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	if b.buildROM(t).SRAM {
		t.Error("SRAM should default to false")
	}
	b.header[6] |= flag6SRAM
	if !b.buildROM(t).SRAM {
		t.Error("SRAM flag not honored")
	}
}

func TestSystemAndTvFormat(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)
	r := b.buildROM(t)
	if r.System != SystemNES || r.TvFormat != NTSC {
		t.Errorf("Expected NES/NTSC defaults, got %v/%v", r.System, r.TvFormat)
	}

	b.header[7] |= flag7Vs
	if b.buildROM(t).System != SystemVs {
		t.Error("Vs flag not honored")
	}

	b = newROMBuilder()
	b.setPRGPageCount(1)
	b.header[9] |= flag9PAL
	if b.buildROM(t).TvFormat != PAL {
		t.Error("PAL flag not honored")
	}
}

func TestMapperNumber(t *testing.T) {
	for _, mapper := range []uint8{0x00, 0x01, 0x0A, 0xF0} {
		b := newROMBuilder()
		b.setPRGPageCount(1)
		b.setMapper(mapper)
		if got := b.buildROM(t).Mapper; got != mapper {
			t.Errorf("Expected mapper %02X, got %02X", mapper, got)
		}
	}
}

func TestPRGRAMSize(t *testing.T) {
	b := newROMBuilder()
	b.setPRGPageCount(1)

	// Zero pages is treated as one page.
	if got := b.buildROM(t).PRGRAMSize; got != PRGRAMPageSize {
		t.Errorf("Expected %d, got %d", PRGRAMPageSize, got)
	}

	b.header[8] = 15
	if got := b.buildROM(t).PRGRAMSize; got != 15*PRGRAMPageSize {
		t.Errorf("Expected %d, got %d", 15*PRGRAMPageSize, got)
	}
}
