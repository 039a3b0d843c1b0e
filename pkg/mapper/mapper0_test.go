package mapper

import (
	"testing"

	"github.com/famigo/pkg/rom"
)

// testROM builds an in-memory ROM image for mapper tests.
func testROM(mapperNum uint8, prgPages, chrPages int) *rom.ROM {
	prg := make([]byte, prgPages*rom.PRGROMPageSize)
	for i := range prg {
		prg[i] = uint8(i % 251)
	}
	chr := make([]byte, chrPages*rom.CHRROMPageSize)
	for i := range chr {
		chr[i] = uint8(i % 239)
	}
	return &rom.ROM{
		Mapper:     mapperNum,
		ScreenMode: rom.Horizontal,
		PRGROM:     prg,
		CHRROM:     chr,
		PRGRAMSize: rom.PRGRAMPageSize,
	}
}

func TestNewRejectsUnsupportedMapper(t *testing.T) {
	r := testROM(4, 1, 1)
	if _, err := New(r, ""); err == nil {
		t.Fatal("Expected an error for mapper 4")
	} else if _, ok := err.(*rom.UnsupportedMapperError); !ok {
		t.Errorf("Expected UnsupportedMapperError, got %T", err)
	}
}

func TestMapper0PRGMirroring(t *testing.T) {
	m := newMapper0(testROM(0, 1, 1))

	// 16KB images mirror $8000 and $C000.
	if m.ReadPRG(0x8111) != m.ReadPRG(0xC111) {
		t.Error("16KB PRG should mirror across $8000-$FFFF")
	}
}

func TestMapper0PRG32KNoMirror(t *testing.T) {
	r := testROM(0, 2, 1)
	r.PRGROM[0x0111] = 0x12
	r.PRGROM[0x4111] = 0x34
	m := newMapper0(r)

	if m.ReadPRG(0x8111) != 0x12 {
		t.Errorf("Expected $12, got $%02X", m.ReadPRG(0x8111))
	}
	if m.ReadPRG(0xC111) != 0x34 {
		t.Errorf("Expected $34, got $%02X", m.ReadPRG(0xC111))
	}
}

func TestMapper0ROMWritesIgnored(t *testing.T) {
	m := newMapper0(testROM(0, 1, 1))
	before := m.ReadPRG(0x8612)
	m.WritePRG(0x8612, before+1)
	if m.ReadPRG(0x8612) != before {
		t.Error("PRG ROM writes should be ignored")
	}

	before = m.ReadCHR(0x1612)
	m.WriteCHR(0x1612, before+1)
	if m.ReadCHR(0x1612) != before {
		t.Error("CHR ROM writes should be ignored")
	}
}

func TestMapper0PRGRAM(t *testing.T) {
	m := newMapper0(testROM(0, 1, 1))

	m.WritePRG(0x6111, 15)
	if m.ReadPRG(0x6111) != 15 {
		t.Errorf("Expected 15, got %d", m.ReadPRG(0x6111))
	}
}

func TestMapper0CHRRAMWhenNoCHRROM(t *testing.T) {
	m := newMapper0(testROM(0, 1, 0))

	m.WriteCHR(0x0ABC, 0x5A)
	if m.ReadCHR(0x0ABC) != 0x5A {
		t.Error("CHR RAM should be writable when the header has no CHR ROM")
	}
}

func TestMirrorTables(t *testing.T) {
	cases := []struct {
		mode rom.ScreenMode
		want [4]uint16
	}{
		{rom.Horizontal, [4]uint16{0, 0, 1, 1}},
		{rom.Vertical, [4]uint16{0, 1, 0, 1}},
		{rom.OneScreenLow, [4]uint16{0, 0, 0, 0}},
		{rom.OneScreenHigh, [4]uint16{1, 1, 1, 1}},
		{rom.FourScreen, [4]uint16{0, 1, 2, 3}},
	}
	for _, tc := range cases {
		if got := *mirrorTableFor(tc.mode); got != tc.want {
			t.Errorf("mode %v: expected %v, got %v", tc.mode, tc.want, got)
		}
	}
}
