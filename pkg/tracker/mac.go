package tracker

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidMAC = errors.New("invalid MAC address")

// MAC is a 48-bit hardware address. The zero value is the all-zero address.
type MAC [6]byte

// ParseMAC accepts colon- or dash-separated hex octets, or 12 bare hex digits.
func ParseMAC(s string) (MAC, error) {
	var m MAC

	cleaned := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(cleaned) != 12 {
		return m, fmt.Errorf("%w: %q", errInvalidMAC, s)
	}

	for i := 0; i < 6; i++ {
		hi, ok1 := hexNibble(cleaned[i*2])
		lo, ok2 := hexNibble(cleaned[i*2+1])

		if !ok1 || !ok2 {
			return m, fmt.Errorf("%w: %q", errInvalidMAC, s)
		}

		m[i] = hi<<4 | lo
	}

	return m, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}

	return 0, false
}

// String returns the canonical lowercase colon-separated form.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Uint64 packs the address into the low 48 bits of a uint64.
func (m MAC) Uint64() uint64 {
	var v uint64
	for _, b := range m {
		v = v<<8 | uint64(b)
	}

	return v
}
