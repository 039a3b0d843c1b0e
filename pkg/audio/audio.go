package audio

// Out consumes finished sample frames from the APU.
type Out interface {
	// Play delivers one buffer of signed 16-bit mono samples.
	Play(samples []int16)
	// SampleRate reports the host rate the APU should resample to.
	SampleRate() float64
}

// Dummy discards samples; used by unit tests and headless runs.
type Dummy struct {
	Delivered int
}

func (d *Dummy) Play(samples []int16) {
	d.Delivered += len(samples)
}

func (d *Dummy) SampleRate() float64 {
	return 44100
}
