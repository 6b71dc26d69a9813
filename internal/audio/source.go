package audio

import "errors"

var (
	// ErrPermissionDenied means the host refused access to the capture device.
	ErrPermissionDenied = errors.New("audio: permission denied")
	// ErrDeviceUnavailable means there is no usable capture device.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")
)

// Source streams mono float32 samples into a Ring until closed.
type Source interface {
	Name() string
	Start(sink *Ring) error
	Close() error
}
