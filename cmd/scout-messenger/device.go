package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sweeney/scout-messenger/internal/status"
)

const machineIDPath = "/etc/machine-id"

// resolveDeviceID returns flagValue if it is 0-255, otherwise the low byte
// of the machine id at path, otherwise a random byte.
func resolveDeviceID(flagValue int, path string) (byte, string) {
	if flagValue >= 0 && flagValue <= 255 {
		return byte(flagValue), "flag"
	}
	if id, err := machineIDByte(path); err == nil {
		return id, "machine-id"
	}
	u := uuid.New()
	return u[len(u)-1], "random"
}

// machineIDByte reads a hex machine id and returns its last byte.
func machineIDByte(path string) (byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	if len(s) < 2 {
		return 0, fmt.Errorf("machine id %q too short", s)
	}
	v, err := strconv.ParseUint(s[len(s)-2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("parse machine id: %w", err)
	}
	return byte(v), nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
