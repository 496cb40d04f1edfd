package portaudio

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/haivivi/dtwasr/pkg/audio/pcm"
)

// Microphone captures fixed-length frames from an input device. It
// satisfies asr.Source.
type Microphone struct {
	device Device
	format pcm.Format
	s      *stream
	closed atomic.Bool
}

// OpenMicrophone starts capturing frames of frameSize samples in format
// from device.
func OpenMicrophone(device Device, format pcm.Format, frameSize int) (*Microphone, error) {
	s, err := openInput(device, float64(format.SampleRate()), frameSize)
	if err != nil {
		return nil, err
	}
	return &Microphone{device: device, format: format, s: s}, nil
}

// ReadFrame blocks for one frame. It returns ctx.Err() once ctx is done
// and io.EOF after Close.
func (m *Microphone) ReadFrame(ctx context.Context) (pcm.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, io.EOF
	}
	samples, err := m.s.read()
	if err != nil {
		if m.closed.Load() {
			return nil, io.EOF
		}
		return nil, err
	}
	return pcm.Frame(samples), nil
}

// Device returns the capturing device.
func (m *Microphone) Device() Device {
	return m.device
}

// Format returns the capture format.
func (m *Microphone) Format() pcm.Format {
	return m.format
}

// Close stops capturing.
func (m *Microphone) Close() error {
	m.closed.Store(true)
	return m.s.close()
}
