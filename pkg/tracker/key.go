package tracker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidDeviceKey = errors.New("invalid device key")

// DeviceKey identifies one tracked device: the phy that observed it plus its
// hardware address. Two devices sharing a MAC across different phys are
// distinct keys. The string form is fixed-format and parseable back.
type DeviceKey struct {
	Phy uint32
	MAC MAC
}

// NewDeviceKey builds a key from a phy id and hardware address.
func NewDeviceKey(phy uint32, mac MAC) DeviceKey {
	return DeviceKey{Phy: phy, MAC: mac}
}

// ParseDeviceKey parses the fixed "PPPPPPPP_AABBCCDDEEFF" form. A malformed
// key is a parse error, distinct from a key that is simply not in the store.
func ParseDeviceKey(s string) (DeviceKey, error) {
	var k DeviceKey

	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) != 2 || len(parts[0]) != 8 || len(parts[1]) != 12 {
		return k, fmt.Errorf("%w: %q", errInvalidDeviceKey, s)
	}

	phy, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return k, fmt.Errorf("%w: %q", errInvalidDeviceKey, s)
	}

	mac, err := ParseMAC(parts[1])
	if err != nil {
		return k, fmt.Errorf("%w: %q", errInvalidDeviceKey, s)
	}

	k.Phy = uint32(phy)
	k.MAC = mac

	return k, nil
}

// String renders the fixed-format form: 8 hex digits of phy id, an
// underscore, then 12 hex digits of MAC.
func (k DeviceKey) String() string {
	return fmt.Sprintf("%08X_%02X%02X%02X%02X%02X%02X",
		k.Phy, k.MAC[0], k.MAC[1], k.MAC[2], k.MAC[3], k.MAC[4], k.MAC[5])
}
