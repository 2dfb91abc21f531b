//go:build linux

package radio

import (
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService     = "org.bluez"
	bluezAdapterPath = "/org/bluez/"
	bluezPoweredProp = "org.bluez.Adapter1.Powered"
)

// ensurePowered turns the BlueZ adapter on if it is off (e.g. after rfkill
// or a fresh boot with AutoEnable=false).
func ensurePowered(adapterID string) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	obj := conn.Object(bluezService, dbus.ObjectPath(bluezAdapterPath+adapterID))
	v, err := obj.GetProperty(bluezPoweredProp)
	if err != nil {
		return fmt.Errorf("read %s: %w", bluezPoweredProp, err)
	}
	if on, _ := v.Value().(bool); on {
		return nil
	}

	log.Printf("radio: powering on %s", adapterID)
	if err := obj.SetProperty(bluezPoweredProp, dbus.MakeVariant(true)); err != nil {
		return fmt.Errorf("set %s: %w", bluezPoweredProp, err)
	}
	return nil
}
