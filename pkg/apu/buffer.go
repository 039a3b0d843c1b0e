package apu

import "math"

// Band-limited sample buffer. Channels deposit amplitude deltas at exact
// CPU-clock positions; each delta becomes a windowed-sinc impulse in the
// output stream, which the reader integrates back into a step. This is
// the classic blip-buffer technique, sized for one video frame of audio
// per transfer.

const (
	// NESClockRate is the NTSC CPU clock the buffers are keyed to.
	NESClockRate = 1789773

	framesPerSecond = 60

	fracBits   = 32
	phaseBits  = 5
	phaseCount = 1 << phaseBits
	kernelTaps = 16
	kernelMid  = kernelTaps / 2
	kernelUnit = 1 << 15
)

// kernels holds one band-limited impulse per sub-sample phase.
var kernels [phaseCount][kernelTaps]int32

func init() {
	for p := 0; p < phaseCount; p++ {
		frac := float64(p) / phaseCount
		row := [kernelTaps]float64{}
		sum := 0.0
		for i := 0; i < kernelTaps; i++ {
			x := float64(i-kernelMid) + 1 - frac
			row[i] = sinc(x) * blackman(x/float64(kernelMid))
			sum += row[i]
		}
		// Normalize so a unit delta integrates to a unit step.
		for i := 0; i < kernelTaps; i++ {
			kernels[p][i] = int32(math.Round(row[i] / sum * kernelUnit))
		}
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func blackman(x float64) float64 {
	if x < -1 || x > 1 {
		return 0
	}
	return 0.42 + 0.5*math.Cos(math.Pi*x) + 0.08*math.Cos(2*math.Pi*x)
}

// SampleBuffer resamples CPU-clock deltas to the host rate.
type SampleBuffer struct {
	factor uint64 // output samples per CPU clock, 32-bit fixed point
	offset uint64 // fractional position of the current frame start

	buf        []int32 // per-sample impulse accumulation
	avail      int     // finished samples ready to read
	integrator int32

	transferSamples int
	samples         []int16
}

// NewSampleBuffer sizes a buffer for the given host sample rate.
func NewSampleBuffer(outRate float64) *SampleBuffer {
	transferSamples := int(outRate) / framesPerSecond
	return &SampleBuffer{
		factor:          uint64(outRate / NESClockRate * float64(uint64(1)<<fracBits)),
		buf:             make([]int32, transferSamples*2+kernelTaps+2),
		transferSamples: transferSamples,
		samples:         make([]int16, transferSamples),
	}
}

// AddDelta deposits an amplitude change at a clock position relative to
// the current frame start.
func (b *SampleBuffer) AddDelta(clockTime uint32, delta int32) {
	pos := b.offset + uint64(clockTime)*b.factor
	idx := b.avail + int(pos>>fracBits)
	phase := int(pos>>(fracBits-phaseBits)) & (phaseCount - 1)

	kernel := &kernels[phase]
	var sum int32
	for i := 0; i < kernelTaps; i++ {
		at := idx + i
		if at >= len(b.buf) {
			break
		}
		v := int32(int64(delta) * int64(kernel[i]) / kernelUnit)
		b.buf[at] += v
		sum += v
	}
	// Rounding leaves the taps a few counts off; the middle tap takes the
	// remainder so the step integrates to exactly delta.
	if mid := idx + kernelMid; mid < len(b.buf) {
		b.buf[mid] += delta - sum
	}
}

// EndFrame closes out clockDuration CPU clocks, making the covered
// samples available for reading.
func (b *SampleBuffer) EndFrame(clockDuration uint32) {
	off := b.offset + uint64(clockDuration)*b.factor
	b.avail += int(off >> fracBits)
	if b.avail > len(b.buf)-kernelTaps {
		b.avail = len(b.buf) - kernelTaps
	}
	b.offset = off & (1<<fracBits - 1)
}

// ClocksNeeded returns how many CPU clocks must elapse before a full
// transfer's worth of samples is available.
func (b *SampleBuffer) ClocksNeeded() uint32 {
	if b.avail >= b.transferSamples {
		return 0
	}
	needed := uint64(b.transferSamples-b.avail) << fracBits
	return uint32((needed - b.offset + b.factor - 1) / b.factor)
}

// Read integrates and returns the available samples. The returned slice
// is valid until the next call.
func (b *SampleBuffer) Read() []int16 {
	n := b.avail
	if n > b.transferSamples {
		n = b.transferSamples
	}
	if n > len(b.samples) {
		n = len(b.samples)
	}

	for i := 0; i < n; i++ {
		b.integrator += b.buf[i]
		v := b.integrator
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		b.samples[i] = int16(v)
	}

	copy(b.buf, b.buf[n:])
	tail := b.buf[len(b.buf)-n:]
	for i := range tail {
		tail[i] = 0
	}
	b.avail -= n

	return b.samples[:n]
}

// Waveform lets multiple channels share a SampleBuffer while keeping
// separate amplitude state.
type Waveform struct {
	buffer     *SampleBuffer
	lastAmp    int16
	volumeMult int32
}

// NewWaveform ties a channel to a buffer with a fixed volume multiplier.
func NewWaveform(buffer *SampleBuffer, volumeMult int32) Waveform {
	return Waveform{buffer: buffer, volumeMult: volumeMult}
}

// SetAmplitude emits a delta if the amplitude changed.
func (w *Waveform) SetAmplitude(amp int16, cycle uint32) {
	delta := int32(amp - w.lastAmp)
	if delta == 0 {
		return
	}
	w.buffer.AddDelta(cycle, delta*w.volumeMult)
	w.lastAmp = amp
}
