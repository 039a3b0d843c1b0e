package apu

// noisePeriodTable maps the low nibble of the period register to a
// timer period.
var noisePeriodTable = [16]uint16{
	0x0004, 0x0008, 0x0010, 0x0020, 0x0040, 0x0060, 0x0080, 0x00A0,
	0x00CA, 0x00FE, 0x017C, 0x01FC, 0x02FA, 0x03F8, 0x07F2, 0x0FE4,
}

// LFSR is the 15-bit linear feedback shift register feeding the noise
// channel.
type LFSR struct {
	value uint16
	mode  uint8
}

// Shift advances the register and reports whether output is enabled.
func (l *LFSR) Shift() bool {
	bit0 := l.value & 0x01
	newBit := bit0 ^ l.otherBit()
	l.value = (l.value >> 1) | (newBit << 14)
	return l.value&0x01 == 1
}

func (l *LFSR) otherBit() uint16 {
	if l.mode == 0 {
		return (l.value >> 1) & 0x01
	}
	return (l.value >> 6) & 0x01
}

// SetMode selects the short-sequence feedback tap.
func (l *LFSR) SetMode(mode uint8) {
	l.mode = mode
}

// Noise is the pseudo-random noise channel.
type Noise struct {
	envelope Envelope
	Length   Length

	timer   Timer
	shifter LFSR

	waveform Waveform
}

// NewNoise builds the noise channel.
func NewNoise(waveform Waveform) *Noise {
	return &Noise{
		Length:   NewLength(5),
		timer:    NewTimer(1),
		shifter:  LFSR{value: 1},
		waveform: waveform,
	}
}

// LengthTick clocks the length counter.
func (n *Noise) LengthTick() {
	n.Length.Tick()
}

// EnvelopeTick clocks the envelope divider.
func (n *Noise) EnvelopeTick() {
	n.envelope.Tick()
}

// Play shifts the LFSR on each timer clock and emits the gated volume.
func (n *Noise) Play(fromCyc, toCyc uint32) {
	if !n.Length.Audible() {
		n.waveform.SetAmplitude(0, fromCyc)
		return
	}

	volume := n.envelope.Volume()

	currentCyc := fromCyc
	for n.timer.Run(&currentCyc, toCyc) {
		if n.shifter.Shift() {
			n.waveform.SetAmplitude(volume, currentCyc)
		} else {
			n.waveform.SetAmplitude(0, currentCyc)
		}
	}
}

// Write dispatches one of the channel's registers.
func (n *Noise) Write(idx uint16, value uint8) {
	switch idx % 4 {
	case 0:
		n.Length.WriteHalt(value)
		n.envelope.Write(value)
	case 2:
		n.shifter.SetMode((value & 0x80) >> 7)
		n.timer.SetPeriod(noisePeriodTable[value&0x0F])
	case 3:
		n.Length.WriteCounter(value)
	}
}
