package audio

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	sdlSampleRate = 44100
	sdlBufferSize = 1024
)

// SDLOut queues APU sample frames on an SDL audio device.
type SDLOut struct {
	device sdl.AudioDeviceID
	spec   sdl.AudioSpec
}

// NewSDLOut opens the default audio device in signed-16 mono.
func NewSDLOut() (*SDLOut, error) {
	want := sdl.AudioSpec{
		Freq:     sdlSampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 1,
		Samples:  sdlBufferSize,
	}

	var have sdl.AudioSpec
	device, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio device")
	}

	out := &SDLOut{device: device, spec: have}
	sdl.PauseAudioDevice(device, false)
	return out, nil
}

// Play queues one buffer of samples on the device.
func (o *SDLOut) Play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)
	sdl.QueueAudio(o.device, bytes)
}

// SampleRate reports the negotiated device rate.
func (o *SDLOut) SampleRate() float64 {
	return float64(o.spec.Freq)
}

// Close shuts the audio device down.
func (o *SDLOut) Close() {
	sdl.CloseAudioDevice(o.device)
}
