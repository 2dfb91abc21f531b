//go:build !linux

package gpio

// RealWatcher is not available on non-Linux platforms.
type RealWatcher struct{}

// NewRealWatcher returns ErrUnsupported on non-Linux platforms.
func NewRealWatcher(cfg Config) (*RealWatcher, error) {
	return nil, ErrUnsupported
}

func (w *RealWatcher) Watch(fn func(Edge)) error { return ErrUnsupported }
func (w *RealWatcher) Pressed() (bool, error)    { return false, ErrUnsupported }
func (w *RealWatcher) Close() error              { return nil }
