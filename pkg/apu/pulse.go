package apu

// pulseDutyCycles encodes the four duty patterns as one-hot step
// transitions: 1 rises to the envelope volume, -1 drops to zero, 0 holds.
var pulseDutyCycles = [4][8]int8{
	{0, 1, -1, 0, 0, 0, 0, 0},
	{0, 1, 0, -1, 0, 0, 0, 0},
	{0, 1, 0, 0, 0, -1, 0, 0},
	{0, -1, 0, 1, 0, 0, 0, 0},
}

// Sweep is the pitch-glide unit attached to each pulse channel.
type Sweep struct {
	enable bool
	period uint8
	negate bool
	shift  uint8

	isPulse2 bool
	divider  uint8
	reload   bool
}

// Write latches sweep parameters and requests a divider reload.
func (s *Sweep) Write(value uint8) {
	s.enable = value&0x80 != 0
	s.period = (value & 0x70) >> 4
	s.negate = value&0x08 != 0
	s.shift = value & 0x07
	s.reload = true
}

// Tick runs on the length-tick cadence and adjusts the timer period.
func (s *Sweep) Tick(timer *Timer) {
	if !s.enable {
		return
	}

	if s.divider > 0 {
		s.divider--
	}
	if s.divider == 0 {
		s.divider = s.period
		timer.AddPeriodShift(s.periodShift(timer))
	}

	if s.reload {
		s.divider = s.period
		s.reload = false
	}
}

// periodShift computes the signed period adjustment; pulse 2's negate
// carries the +1 correction.
func (s *Sweep) periodShift(timer *Timer) int16 {
	shift := int16(timer.Period()) >> s.shift
	if s.negate {
		shift = -shift
		if s.isPulse2 {
			shift++
		}
	}
	return shift
}

// Pulse is one of the two square-wave channels.
type Pulse struct {
	duty      int
	dutyIndex int

	envelope Envelope
	sweep    Sweep
	timer    Timer
	Length   Length

	waveform Waveform
}

// NewPulse builds a pulse channel; isPulse2 selects the sweep negate
// correction.
func NewPulse(isPulse2 bool, waveform Waveform) *Pulse {
	return &Pulse{
		envelope: Envelope{},
		sweep:    Sweep{isPulse2: isPulse2},
		timer:    NewTimer(2),
		Length:   NewLength(5),
		waveform: waveform,
	}
}

// LengthTick clocks the length counter and the sweep.
func (p *Pulse) LengthTick() {
	p.Length.Tick()
	p.sweep.Tick(&p.timer)
}

// EnvelopeTick clocks the envelope divider.
func (p *Pulse) EnvelopeTick() {
	p.envelope.Tick()
}

// Play emits amplitude deltas for the cycle span [fromCyc, toCyc).
func (p *Pulse) Play(fromCyc, toCyc uint32) {
	if !p.Length.Audible() {
		p.waveform.SetAmplitude(0, fromCyc)
		return
	}

	volume := p.envelope.Volume()

	currentCyc := fromCyc
	for p.timer.Run(&currentCyc, toCyc) {
		p.dutyIndex = (p.dutyIndex + 1) % 8
		switch pulseDutyCycles[p.duty][p.dutyIndex] {
		case 1:
			p.waveform.SetAmplitude(volume, currentCyc)
		case -1:
			p.waveform.SetAmplitude(0, currentCyc)
		}
	}
}

// Write dispatches one of the channel's four registers.
func (p *Pulse) Write(idx uint16, value uint8) {
	switch idx % 4 {
	case 0:
		p.duty = int(value >> 6)
		p.Length.WriteHalt(value)
		p.envelope.Write(value)
	case 1:
		p.sweep.Write(value)
	case 2:
		p.timer.WriteLow(value)
	case 3:
		p.Length.WriteCounter(value)
		p.timer.WriteHigh(value)
	}
}
