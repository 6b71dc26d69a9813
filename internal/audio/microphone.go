package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	CaptureSampleRate      = 44100
	CaptureFramesPerBuffer = 512
)

// Microphone captures the default input device through PortAudio.
type Microphone struct {
	SampleRate      float64
	FramesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
	device string
}

func NewMicrophone() *Microphone {
	return &Microphone{SampleRate: CaptureSampleRate, FramesPerBuffer: CaptureFramesPerBuffer}
}

func (m *Microphone) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != "" {
		return "mic:" + m.device
	}
	return "mic"
}

func (m *Microphone) Start(sink *Ring) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return classifyPortAudio("initialize", err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil || dev.MaxInputChannels < 1 {
		portaudio.Terminate()
		if err == nil {
			err = errors.New("no input channels")
		}
		return fmt.Errorf("%w: default input: %w", ErrDeviceUnavailable, err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, m.SampleRate, m.FramesPerBuffer, func(in []float32) {
		sink.Write(in)
	})
	if err != nil {
		portaudio.Terminate()
		return classifyPortAudio("open stream", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return classifyPortAudio("start stream", err)
	}
	m.stream = stream
	m.device = dev.Name
	return nil
}

// Close stops the stream. Calling it on a stopped microphone is a no-op.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	stopErr := m.stream.Stop()
	closeErr := m.stream.Close()
	m.stream = nil
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}

// classifyPortAudio maps PortAudio failures onto the capture error taxonomy.
// Host API errors are how a denied microphone surfaces on the common hosts.
func classifyPortAudio(op string, err error) error {
	var hostErr portaudio.UnanticipatedHostError
	switch {
	case errors.As(err, &hostErr):
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, op, err)
	case errors.Is(err, portaudio.DeviceUnavailable),
		errors.Is(err, portaudio.InvalidDevice),
		errors.Is(err, portaudio.InvalidChannelCount):
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
