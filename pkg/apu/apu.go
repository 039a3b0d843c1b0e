package apu

import (
	"github.com/famigo/pkg/audio"
	"github.com/famigo/pkg/logger"
)

// ntscTickLengthTable gives the CPU-cycle gap to the next 240Hz frame
// tick, per mode and tick index. Mode 1's leading 1-cycle entry makes
// the dummy tick fire immediately after the mode is selected.
var ntscTickLengthTable = [2][6]uint64{
	{7459, 7456, 7458, 7458, 7458, 0},
	{1, 7458, 7456, 7458, 7458, 7452},
}

// volumeMult scales a channel's 0-15 amplitude into the i16 sample
// space, leaving headroom for three channels per buffer.
const volumeMult = int32((32767 / 16) / 3)

// frame register bits ($4017)
const (
	frameMode        = 0x80 // 0 = 4-step, 1 = 5-step
	frameSuppressIRQ = 0x40
)

// APU is the frame sequencer plus the five channels and the two
// band-limited buffers they mix into.
type APU struct {
	Pulse1   *Pulse
	Pulse2   *Pulse
	Triangle *Triangle
	Noise    *Noise
	DMC      *DMC

	frame uint8

	pulseBuffer *SampleBuffer
	tndBuffer   *SampleBuffer

	device audio.Out

	globalCyc       uint64
	tick            uint8
	nextTickCyc     uint64
	nextTransferCyc uint64
	lastFrameCyc    uint64

	irqRequested bool

	// $4017 writes landing on an odd cycle are delayed one cycle.
	jitterPending bool
	jitterCyc     uint64
	jitterValue   uint8

	mixed []int16
}

// New wires the channels to fresh sample buffers targeting the device's
// sample rate.
func New(device audio.Out) *APU {
	sampleRate := device.SampleRate()

	pulseBuffer := NewSampleBuffer(sampleRate)
	tndBuffer := NewSampleBuffer(sampleRate)

	return &APU{
		Pulse1:   NewPulse(false, NewWaveform(pulseBuffer, volumeMult)),
		Pulse2:   NewPulse(true, NewWaveform(pulseBuffer, volumeMult)),
		Triangle: NewTriangle(NewWaveform(tndBuffer, volumeMult)),
		Noise:    NewNoise(NewWaveform(tndBuffer, volumeMult)),
		DMC:      &DMC{},

		pulseBuffer: pulseBuffer,
		tndBuffer:   tndBuffer,
		device:      device,

		nextTickCyc:     ntscTickLengthTable[0][0],
		nextTransferCyc: uint64(pulseBuffer.ClocksNeeded()),
	}
}

// RunTo advances the APU to the given CPU cycle, resolving frame ticks,
// delayed $4017 writes and sample transfers in cycle order. It returns
// true when the frame counter raised an IRQ during the interval.
func (a *APU) RunTo(cpuCycle uint64) bool {
	irq := false

	for a.globalCyc < cpuCycle {
		currentCycle := a.globalCyc

		nextStep := cpuCycle
		if a.nextTickCyc < nextStep {
			nextStep = a.nextTickCyc
		}
		if a.nextTransferCyc < nextStep {
			nextStep = a.nextTransferCyc
		}
		if a.jitterPending && a.jitterCyc < nextStep {
			nextStep = a.jitterCyc
		}

		a.play(currentCycle, nextStep)
		a.globalCyc = nextStep

		if a.jitterPending && a.globalCyc == a.jitterCyc {
			a.setFrameRegister(a.jitterValue)
			a.jitterPending = false
		}
		if a.globalCyc == a.nextTickCyc {
			irq = a.frameTick() || irq
		}
		if a.globalCyc == a.nextTransferCyc {
			a.transfer()
		}
	}
	return irq
}

// frameTick is the 240Hz output of the frame sequencer's divider.
func (a *APU) frameTick() bool {
	a.tick++
	mode := a.frameModeIndex()
	a.nextTickCyc = a.globalCyc + ntscTickLengthTable[mode][a.tick]

	if mode == 0 {
		switch a.tick {
		case 1, 3:
			a.envelopeTick()
		case 2:
			a.envelopeTick()
			a.lengthTick()
		case 4:
			a.tick = 0
			a.envelopeTick()
			a.lengthTick()
			return a.raiseIRQ()
		default:
			a.tick = 0
		}
	} else {
		switch a.tick {
		case 1, 3:
			a.envelopeTick()
			a.lengthTick()
		case 2, 4:
			a.envelopeTick()
		default:
			// Tick 4 is the last real tick in the 5-step cycle.
			a.tick = 0
		}
	}
	return false
}

func (a *APU) frameModeIndex() int {
	if a.frame&frameMode != 0 {
		return 1
	}
	return 0
}

func (a *APU) envelopeTick() {
	a.Pulse1.EnvelopeTick()
	a.Pulse2.EnvelopeTick()
	a.Triangle.EnvelopeTick()
	a.Noise.EnvelopeTick()
}

func (a *APU) lengthTick() {
	a.Pulse1.LengthTick()
	a.Pulse2.LengthTick()
	a.Triangle.LengthTick()
	a.Noise.LengthTick()
}

func (a *APU) raiseIRQ() bool {
	if a.frame&frameSuppressIRQ == 0 {
		a.irqRequested = true
		return true
	}
	return false
}

func (a *APU) play(fromCyc, toCyc uint64) {
	from := uint32(fromCyc - a.lastFrameCyc)
	to := uint32(toCyc - a.lastFrameCyc)
	a.Pulse1.Play(from, to)
	a.Pulse2.Play(from, to)
	a.Triangle.Play(from, to)
	a.Noise.Play(from, to)
	a.DMC.Play(from, to)
}

// transfer closes both buffers, zips the streams with saturating
// addition and hands the finished samples to the audio sink.
func (a *APU) transfer() {
	cyclesSinceLastFrame := uint32(a.globalCyc - a.lastFrameCyc)
	a.lastFrameCyc = a.globalCyc

	a.pulseBuffer.EndFrame(cyclesSinceLastFrame)
	a.tndBuffer.EndFrame(cyclesSinceLastFrame)

	pulse := a.pulseBuffer.Read()
	tnd := a.tndBuffer.Read()

	n := len(pulse)
	if len(tnd) < n {
		n = len(tnd)
	}
	if cap(a.mixed) < n {
		a.mixed = make([]int16, n)
	}
	a.mixed = a.mixed[:n]
	for i := 0; i < n; i++ {
		a.mixed[i] = saturatingAdd(pulse[i], tnd[i])
	}

	a.nextTransferCyc = a.globalCyc + uint64(a.pulseBuffer.ClocksNeeded())
	a.device.Play(a.mixed)
}

func saturatingAdd(x, y int16) int16 {
	sum := int32(x) + int32(y)
	if sum > 32767 {
		return 32767
	}
	if sum < -32768 {
		return -32768
	}
	return int16(sum)
}

// RequestedRunCycle returns the next cycle at which the CPU must run the
// APU. The tick deadline covers the frame IRQ, since IRQs land on tick
// boundaries; the DMC IRQ does not exist in this stub.
func (a *APU) RequestedRunCycle() uint64 {
	return a.nextTickCyc
}

func (a *APU) setFrameRegister(value uint8) {
	a.frame = value & (frameMode | frameSuppressIRQ)
	if a.frame&frameSuppressIRQ != 0 {
		a.irqRequested = false
	}

	a.tick = 0
	a.nextTickCyc = a.globalCyc + ntscTickLengthTable[a.frameModeIndex()][0]
	logger.LogAPU("$4017 = $%02X, next tick at %d", value, a.nextTickCyc)
}

// ReadStatus services a $4015 read: run to cycle-1, read the length and
// IRQ bits (clearing the IRQ flag), then run to cycle. The returned bool
// reports an IRQ raised during the catch-up.
func (a *APU) ReadStatus(cycle uint64) (bool, uint8) {
	irq := a.RunTo(cycle - 1)

	var status uint8
	status |= a.Pulse1.Length.Active()
	status |= a.Pulse2.Length.Active() << 1
	status |= a.Triangle.Length.Active() << 2
	status |= a.Noise.Length.Active() << 3
	if a.irqRequested {
		status |= 1 << 6
	}
	a.irqRequested = false

	return a.RunTo(cycle) || irq, status
}

// Write dispatches an APU register write ($4000-$4017).
func (a *APU) Write(idx uint16, value uint8) {
	switch reg := idx % 0x20; {
	case reg <= 0x03:
		a.Pulse1.Write(reg, value)
	case reg <= 0x07:
		a.Pulse2.Write(reg, value)
	case reg <= 0x0B:
		a.Triangle.Write(reg, value)
	case reg <= 0x0F:
		a.Noise.Write(reg, value)
	case reg <= 0x13:
		a.DMC.Write(reg, value)
	case reg == 0x15:
		a.Noise.Length.SetEnable(value&0x08 != 0)
		a.Triangle.Length.SetEnable(value&0x04 != 0)
		a.Pulse2.Length.SetEnable(value&0x02 != 0)
		a.Pulse1.Length.SetEnable(value&0x01 != 0)
	case reg == 0x17:
		if a.globalCyc%2 == 0 {
			a.setFrameRegister(value)
		} else {
			a.jitterPending = true
			a.jitterCyc = a.globalCyc + 1
			a.jitterValue = value
		}
	}
}
