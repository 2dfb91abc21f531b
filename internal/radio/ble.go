//go:build linux

package radio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/scout-messenger/internal/packet"
	"tinygo.org/x/bluetooth"
)

// BLEDriver drives a BlueZ adapter through tinygo.org/x/bluetooth.
//
// BlueZ chooses its own scan duty cycle, so ScanParams are recorded for
// status reporting only. Flags are added to advertisements by BlueZ.
type BLEDriver struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement

	mu          sync.Mutex
	scanning    bool
	scanDone    chan struct{}
	advertising bool
	params      ScanParams
}

// DefaultAdapterID is the only adapter the bluetooth package can drive.
const DefaultAdapterID = "hci0"

// ErrUnknownAdapter is returned for any adapter other than DefaultAdapterID.
var ErrUnknownAdapter = errors.New("radio: only " + DefaultAdapterID + " is supported")

// NewBLEDriver powers on and enables the adapter. bluetooth only exposes
// DefaultAdapter, so any adapterID other than DefaultAdapterID is rejected.
func NewBLEDriver(adapterID string) (*BLEDriver, error) {
	if adapterID != DefaultAdapterID {
		return nil, fmt.Errorf("adapter %s: %w", adapterID, ErrUnknownAdapter)
	}
	if err := ensurePowered(adapterID); err != nil {
		return nil, fmt.Errorf("power adapter %s: %w", adapterID, err)
	}

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter %s: %w", adapterID, err)
	}

	return &BLEDriver{
		adapter: adapter,
		adv:     adapter.DefaultAdvertisement(),
	}, nil
}

func (d *BLEDriver) StartScan(p ScanParams, fn func(Result)) error {
	d.mu.Lock()
	if d.scanning {
		d.mu.Unlock()
		return ErrBusy
	}
	d.scanning = true
	d.params = p
	done := make(chan struct{})
	d.scanDone = done
	d.mu.Unlock()

	go func() {
		defer close(done)
		err := d.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			fn(Result{
				Address: r.Address.String(),
				RSSI:    r.RSSI,
				Data:    rawAdvertisement(r),
			})
		})
		if err != nil {
			log.Printf("radio: scan ended: %v", err)
		}
		d.mu.Lock()
		d.scanning = false
		d.mu.Unlock()
	}()
	return nil
}

func (d *BLEDriver) StopScan() error {
	d.mu.Lock()
	if !d.scanning {
		d.mu.Unlock()
		return ErrNotActive
	}
	done := d.scanDone
	d.mu.Unlock()

	if err := d.adapter.StopScan(); err != nil {
		return fmt.Errorf("stop scan: %w", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		log.Printf("radio: scan goroutine slow to exit")
	}
	return nil
}

func (d *BLEDriver) StartAdvertise(interval time.Duration, adv []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.advertising {
		return ErrBusy
	}

	name, _ := packet.LocalName(adv)
	opts := bluetooth.AdvertisementOptions{
		LocalName:        name,
		Interval:         bluetooth.NewDuration(interval),
		ManufacturerData: manufacturerElements(adv),
	}
	if err := d.adv.Configure(opts); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := d.adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	d.advertising = true
	return nil
}

func (d *BLEDriver) StopAdvertise() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.advertising {
		return ErrNotActive
	}
	d.advertising = false
	if err := d.adv.Stop(); err != nil {
		return fmt.Errorf("stop advertisement: %w", err)
	}
	return nil
}

// rawAdvertisement returns the raw AD bytes of r. BlueZ only exposes parsed
// fields, so in that case the manufacturer structures are rebuilt.
func rawAdvertisement(r bluetooth.ScanResult) []byte {
	if b := r.AdvertisementPayload.Bytes(); len(b) > 0 {
		return b
	}
	var out []byte
	for _, md := range r.AdvertisementPayload.ManufacturerData() {
		out = append(out, packet.ManufacturerStructure(md.CompanyID, md.Data)...)
	}
	return out
}

// manufacturerElements splits the manufacturer structures out of adv.
// A structure cut short by the advertising budget is skipped.
func manufacturerElements(adv []byte) []bluetooth.ManufacturerDataElement {
	var elems []bluetooth.ManufacturerDataElement
	i := 0
	for i < len(adv) {
		ln := int(adv[i])
		if ln == 0 || i+1+ln > len(adv) {
			break
		}
		if adv[i+1] == packet.ADTypeManufacturerData && ln >= 3 {
			data := adv[i+2 : i+1+ln]
			elems = append(elems, bluetooth.ManufacturerDataElement{
				CompanyID: uint16(data[0]) | uint16(data[1])<<8,
				Data:      append([]byte(nil), data[2:]...),
			})
		}
		i += 1 + ln
	}
	return elems
}
