//go:build linux || darwin

package mapper

import (
	"os"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// batteryRAM persists PRG RAM to a .sav file next to the ROM via mmap,
// so the save survives the process without explicit flush points.
type batteryRAM struct {
	data []byte
}

// savPath swaps the ROM's extension for .sav.
func savPath(romPath string) string {
	if idx := strings.LastIndex(romPath, "."); idx > strings.LastIndex(romPath, "/") {
		return romPath[:idx] + ".sav"
	}
	return romPath + ".sav"
}

func newBatteryRAM(romPath string, size int) (*batteryRAM, error) {
	path := savPath(romPath)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open battery file %s", path)
	}
	defer file.Close()

	if err := file.Truncate(int64(size)); err != nil {
		return nil, errors.Wrapf(err, "failed to size battery file %s", path)
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map battery file %s", path)
	}

	return &batteryRAM{data: data}, nil
}

func (b *batteryRAM) Read(addr uint16) uint8 {
	return b.data[int(addr)%len(b.data)]
}

func (b *batteryRAM) Write(addr uint16, value uint8) {
	b.data[int(addr)%len(b.data)] = value
}
