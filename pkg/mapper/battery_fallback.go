//go:build !linux && !darwin

package mapper

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// batteryRAM fallback for hosts without mmap: the save file is read at
// load and rewritten on every store.
type batteryRAM struct {
	path string
	data []byte
}

func savPath(romPath string) string {
	if idx := strings.LastIndex(romPath, "."); idx > strings.LastIndex(romPath, "/") {
		return romPath[:idx] + ".sav"
	}
	return romPath + ".sav"
}

func newBatteryRAM(romPath string, size int) (*batteryRAM, error) {
	path := savPath(romPath)
	data := make([]byte, size)
	if existing, err := os.ReadFile(path); err == nil {
		copy(data, existing)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Wrapf(err, "failed to create battery file %s", path)
	}
	return &batteryRAM{path: path, data: data}, nil
}

func (b *batteryRAM) Read(addr uint16) uint8 {
	return b.data[int(addr)%len(b.data)]
}

func (b *batteryRAM) Write(addr uint16, value uint8) {
	b.data[int(addr)%len(b.data)] = value
	os.WriteFile(b.path, b.data, 0644)
}
