package input

import "strings"

// Scripted plays back per-strobe commands; the hash-verified system
// tests use it to press buttons at known frames. Commands use the FM2
// field format "RLDUTSBA|RLDUTSBA" without the leading command column.
type Scripted struct {
	frames   int
	commands map[int]string

	controller1 ShiftRegister8
	controller2 ShiftRegister8
}

// NewScripted builds a scripted input source from a frame→command map.
func NewScripted(commands map[int]string) *Scripted {
	return &Scripted{commands: commands}
}

// Read shifts out controller state OR'd with the open-bus constant.
func (s *Scripted) Read(addr uint16) uint8 {
	switch addr {
	case 0x4016:
		return OpenBus | s.controller1.Shift()
	case 0x4017:
		return OpenBus | s.controller2.Shift()
	}
	return 0
}

// Write latches the scripted command for the current strobe count.
func (s *Scripted) Write(addr uint16, value uint8) {
	if addr != 0x4016 || value&0x01 == 0 {
		return
	}
	if line, ok := s.commands[s.frames]; ok {
		first, second, _ := strings.Cut(line, "|")
		s.controller1.Load(parseButtons(first))
		s.controller2.Load(parseButtons(second))
	}
	s.frames++
}

// Poll does nothing; scripted input is driven by strobe writes.
func (s *Scripted) Poll() {}
