package screen

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashScreen hashes each frame's 6-bit color bytes with SHA-1. The test
// harness compares the per-frame digests against known-good values.
type HashScreen struct {
	// Hashes holds one hex digest per delivered frame.
	Hashes []string

	// Report, when set, is called with each frame number and digest.
	Report func(frame int, hash string)
}

// Draw hashes the frame and records the digest.
func (h *HashScreen) Draw(buffer *[BufferSize]Color) {
	var bytes [BufferSize]byte
	for i, c := range buffer {
		bytes[i] = c.Bits()
	}

	sum := sha1.Sum(bytes[:])
	digest := hex.EncodeToString(sum[:])

	if h.Report != nil {
		h.Report(len(h.Hashes), digest)
	}
	h.Hashes = append(h.Hashes, digest)
}

// Frames returns the number of frames delivered so far.
func (h *HashScreen) Frames() int {
	return len(h.Hashes)
}
