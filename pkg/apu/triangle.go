package apu

// triangleSequence is the 32-step output ramp the timer walks.
var triangleSequence = [32]int16{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// LinearCounter gates the triangle at envelope-tick granularity.
type LinearCounter struct {
	control bool
	reload  bool
	value   uint8
	counter uint8
}

// Write latches the reload value and control flag.
func (l *LinearCounter) Write(value uint8) {
	l.value = value & 0x7F
	l.control = value&0x80 != 0
}

// Tick reloads or decrements the counter; the reload flag sticks while
// the control bit is set.
func (l *LinearCounter) Tick() {
	if l.reload {
		l.counter = l.value
	} else if l.counter > 0 {
		l.counter--
	}

	if !l.control {
		l.reload = false
	}
}

// Audible reports whether the counter is non-zero.
func (l *LinearCounter) Audible() bool {
	return l.counter > 0
}

// Triangle is the triangle-wave channel.
type Triangle struct {
	counter  LinearCounter
	timer    Timer
	Length   Length
	seqIndex int

	waveform Waveform
}

// NewTriangle builds the triangle channel.
func NewTriangle(waveform Waveform) *Triangle {
	return &Triangle{
		timer:    NewTimer(1),
		Length:   NewLength(7),
		waveform: waveform,
	}
}

// LengthTick clocks the length counter.
func (t *Triangle) LengthTick() {
	t.Length.Tick()
}

// EnvelopeTick clocks the linear counter.
func (t *Triangle) EnvelopeTick() {
	t.counter.Tick()
}

// Play steps the 32-entry sequence while both counters are non-zero.
func (t *Triangle) Play(fromCyc, toCyc uint32) {
	if !t.Length.Audible() || !t.counter.Audible() {
		// The sequencer freezes in place; the last output level holds.
		return
	}

	currentCyc := fromCyc
	for t.timer.Run(&currentCyc, toCyc) {
		t.seqIndex = (t.seqIndex + 1) % len(triangleSequence)
		t.waveform.SetAmplitude(triangleSequence[t.seqIndex], currentCyc)
	}
}

// Write dispatches one of the channel's registers.
func (t *Triangle) Write(idx uint16, value uint8) {
	switch idx % 4 {
	case 0:
		t.Length.WriteHalt(value)
		t.counter.Write(value)
	case 2:
		t.timer.WriteLow(value)
	case 3:
		t.Length.WriteCounter(value)
		t.timer.WriteHigh(value)
		t.counter.reload = true
	}
}
