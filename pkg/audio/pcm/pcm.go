package pcm

import (
	"encoding/binary"
	"time"
)

// FrameDuration is the analysis frame length used for voice activity
// detection and segmentation.
const FrameDuration = 25 * time.Millisecond

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents an audio format configuration.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	return 1
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	return 16
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// FrameSize returns the number of samples in one frame of duration d.
func (f Format) FrameSize(d time.Duration) int {
	return f.SamplesInDuration(d)
}

// Duration returns the play time of n samples.
func (f Format) Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate())
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid audio type")
}

// Frame is one fixed-length block of samples.
type Frame []int16

// Split groups samples into frames of size samples. The last frame is
// zero-padded to full length.
func Split(samples []int16, size int) []Frame {
	if size <= 0 {
		panic("pcm: invalid frame size")
	}
	frames := make([]Frame, 0, (len(samples)+size-1)/size)
	for len(samples) > 0 {
		f := make(Frame, size)
		n := copy(f, samples)
		samples = samples[n:]
		frames = append(frames, f)
	}
	return frames
}

// Join concatenates frames into one sample slice.
func Join(frames []Frame) []int16 {
	var n int
	for _, f := range frames {
		n += len(f)
	}
	out := make([]int16, 0, n)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// Decode converts little-endian 16-bit PCM bytes to samples. A trailing
// odd byte is ignored.
func Decode(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Encode converts samples to little-endian 16-bit PCM bytes.
func Encode(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
