package input

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// FM2 replays a recorded movie. Each strobe write of bit 0 = 1 to $4016
// consumes the next input line and latches both controller snapshots.
type FM2 struct {
	lines []string
	next  int

	controller1 ShiftRegister8
	controller2 ShiftRegister8
}

// LoadFM2 reads a movie file. Everything up to and including the first
// line containing '|' is header; the rest are input frames.
func LoadFM2(path string) (*FM2, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open movie file %s", path)
	}
	defer file.Close()

	var lines []string
	seenInput := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !seenInput {
			if strings.Contains(line, "|") {
				seenInput = true
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read movie file %s", path)
	}

	return &FM2{lines: lines}, nil
}

// Read shifts out controller state OR'd with the open-bus constant.
func (f *FM2) Read(addr uint16) uint8 {
	switch addr {
	case 0x4016:
		return OpenBus | f.controller1.Shift()
	case 0x4017:
		return OpenBus | f.controller2.Shift()
	}
	return 0
}

// Write consumes the next movie line on each strobe.
func (f *FM2) Write(addr uint16, value uint8) {
	if addr != 0x4016 || value&0x01 == 0 {
		return
	}
	if f.next >= len(f.lines) {
		return
	}
	// |command|controller1|controller2|...
	fields := strings.Split(f.lines[f.next], "|")
	f.next++
	if len(fields) >= 4 {
		f.controller1.Load(parseButtons(fields[2]))
		f.controller2.Load(parseButtons(fields[3]))
	}
}

// Poll does nothing; movies are driven by strobe writes alone.
func (f *FM2) Poll() {}
