// Package eth provides the Ethernet primitives shared by the switch model.
package eth

import "fmt"

// AddrLen is the number of bytes in a MAC address.
const AddrLen = 6

// A MacAddr is a 48-bit Ethernet hardware address, stored in the low bits of
// a uint64.
type MacAddr uint64

// Reserved addresses.
const (
	// AddrNone is the all-zero address. It marks an empty or invalid field.
	AddrNone MacAddr = 0

	// Broadcast is the all-ones address. It is never stored in the
	// MAC-address table.
	Broadcast MacAddr = 0xFFFFFFFFFFFF
)

// AddrFromBytes assembles a MacAddr from 6 bytes in network order.
func AddrFromBytes(b []byte) MacAddr {
	if len(b) != AddrLen {
		panic("MAC address must be 6 bytes")
	}

	var a MacAddr
	for i := 0; i < AddrLen; i++ {
		a = a<<8 | MacAddr(b[i])
	}

	return a
}

// ParseAddr parses an address in the colon-separated form.
func ParseAddr(s string) (MacAddr, error) {
	var b [AddrLen]byte

	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != AddrLen {
		return AddrNone, fmt.Errorf("malformed MAC address %q", s)
	}

	return AddrFromBytes(b[:]), nil
}

// Bytes returns the address as 6 bytes in network order.
func (a MacAddr) Bytes() []byte {
	b := make([]byte, AddrLen)
	for i := AddrLen - 1; i >= 0; i-- {
		b[i] = byte(a)
		a >>= 8
	}

	return b
}

// IsMulticast reports whether the I/G bit of the address is set. The
// broadcast address is a special case of multicast.
func (a MacAddr) IsMulticast() bool {
	return a&0x010000000000 != 0
}

// IsUnicast reports whether the address is a normal unicast address.
// The all-zero address is neither unicast nor multicast.
func (a MacAddr) IsUnicast() bool {
	return a != AddrNone && !a.IsMulticast()
}

// String formats the address in the usual colon-separated form.
func (a MacAddr) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		b[0], b[1], b[2], b[3], b[4], b[5])
}
