//go:build !linux

package radio

import "time"

// BLEDriver is not available on non-Linux platforms.
type BLEDriver struct{}

// NewBLEDriver returns ErrUnsupported on non-Linux platforms.
func NewBLEDriver(adapterID string) (*BLEDriver, error) {
	return nil, ErrUnsupported
}

func (d *BLEDriver) StartScan(p ScanParams, fn func(Result)) error { return ErrUnsupported }
func (d *BLEDriver) StopScan() error                               { return ErrNotActive }
func (d *BLEDriver) StartAdvertise(interval time.Duration, adv []byte) error {
	return ErrUnsupported
}
func (d *BLEDriver) StopAdvertise() error { return ErrNotActive }
