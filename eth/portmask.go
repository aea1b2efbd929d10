package eth

import "fmt"

// MaxPorts is the widest port mask the model supports.
const MaxPorts = 32

// A PortMask is a bitmask of egress ports. Bit N corresponds to port index N.
type PortMask uint32

// PortBit returns the mask with only the given port set.
func PortBit(portIdx int) PortMask {
	if portIdx < 0 || portIdx >= MaxPorts {
		panic(fmt.Sprintf("port index %d out of range", portIdx))
	}

	return PortMask(1) << uint(portIdx)
}

// AllPorts returns the mask with the lowest numPorts bits set.
func AllPorts(numPorts int) PortMask {
	if numPorts < 0 || numPorts > MaxPorts {
		panic(fmt.Sprintf("port count %d out of range", numPorts))
	}

	if numPorts == MaxPorts {
		return ^PortMask(0)
	}

	return PortMask(1)<<uint(numPorts) - 1
}

// Has reports whether the given port is set in the mask.
func (m PortMask) Has(portIdx int) bool {
	return m&PortBit(portIdx) != 0
}

// Set returns the mask with the given port set or cleared.
func (m PortMask) Set(portIdx int, enable bool) PortMask {
	if enable {
		return m | PortBit(portIdx)
	}

	return m &^ PortBit(portIdx)
}

// Without returns the mask with the given port cleared.
func (m PortMask) Without(portIdx int) PortMask {
	return m &^ PortBit(portIdx)
}

// Count returns the number of ports set in the mask.
func (m PortMask) Count() int {
	n := 0
	for m != 0 {
		m &= m - 1
		n++
	}

	return n
}
