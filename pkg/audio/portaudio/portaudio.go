// Package portaudio captures microphone audio through the PortAudio C
// library.
//
// For go build: requires portaudio installed via pkg-config (brew install portaudio).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// void* wrappers avoid cgo type issues with PaStream.
static PaError pa_open_input(void **stream, const PaStreamParameters *params,
                             double sampleRate, unsigned long framesPerBuffer) {
    return Pa_OpenStream((PaStream**)stream, params, NULL, sampleRate,
                         framesPerBuffer, paClipOff, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// ErrNoDevice is returned when no matching input device exists.
var ErrNoDevice = errors.New("portaudio: no input device")

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return fmt.Errorf("portaudio: %s", C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate terminates the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// Device describes an input device.
type Device struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	Channels          int     `json:"channels" yaml:"channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	LowLatency        float64 `json:"low_latency" yaml:"low_latency"` // seconds
	Default           bool    `json:"default,omitempty" yaml:"default,omitempty"`
}

// InputDevices lists the devices that can record.
func InputDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}
	def := int(C.Pa_GetDefaultInputDevice())

	var out []Device
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil || info.maxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:             i,
			Name:              C.GoString(info.name),
			Channels:          int(info.maxInputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			LowLatency:        float64(info.defaultLowInputLatency),
			Default:           i == def,
		})
	}
	return out, nil
}

// FindInputDevice returns the default input device when name is empty,
// otherwise the first device whose name contains name, ignoring case.
func FindInputDevice(name string) (Device, error) {
	devices, err := InputDevices()
	if err != nil {
		return Device{}, err
	}
	return pick(devices, name)
}

func pick(devices []Device, name string) (Device, error) {
	want := strings.ToLower(name)
	for _, d := range devices {
		if name == "" && d.Default {
			return d, nil
		}
		if name != "" && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	if name == "" {
		return Device{}, ErrNoDevice
	}
	return Device{}, fmt.Errorf("%w matching %q", ErrNoDevice, name)
}

// stream is an open mono int16 input stream.
type stream struct {
	mu     sync.Mutex
	ptr    unsafe.Pointer
	buffer unsafe.Pointer
	frames int
	closed bool
}

func openInput(d Device, sampleRate float64, frames int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	params := &C.PaStreamParameters{
		device:                    C.PaDeviceIndex(d.Index),
		channelCount:              1,
		sampleFormat:              C.paInt16,
		suggestedLatency:          C.PaTime(d.LowLatency),
		hostApiSpecificStreamInfo: nil,
	}
	var ptr unsafe.Pointer
	if err := paError(C.pa_open_input(&ptr, params, C.double(sampleRate), C.ulong(frames))); err != nil {
		return nil, err
	}
	s := &stream{
		ptr:    ptr,
		buffer: C.malloc(C.size_t(frames * 2)),
		frames: frames,
	}
	if err := paError(C.pa_start_stream(ptr)); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// read blocks until one buffer of samples is captured.
func (s *stream) read() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("portaudio: stream closed")
	}
	if err := paError(C.pa_read_stream(s.ptr, s.buffer, C.ulong(s.frames))); err != nil {
		return nil, err
	}
	samples := make([]int16, s.frames)
	C.memcpy(unsafe.Pointer(&samples[0]), s.buffer, C.size_t(s.frames*2))
	return samples, nil
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.pa_stop_stream(s.ptr)
	err := paError(C.pa_close_stream(s.ptr))
	C.free(s.buffer)
	return err
}
