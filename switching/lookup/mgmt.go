package lookup

import (
	"github.com/sarchlab/ethsim/eth"
	"github.com/sarchlab/ethsim/switching/mactable"
)

// MissPolicy selects what happens to a frame whose destination address is
// not in the table.
type MissPolicy int

const (
	// MissBroadcast floods the frame to all enabled ports except ingress.
	MissBroadcast MissPolicy = iota

	// MissDrop drops the frame.
	MissDrop
)

// The methods in this file form the management surface of the engine. The
// engine mutates its state between events, so every call here is atomic with
// respect to frame processing.

// MacTableRead returns the table entry at the given slot index. The boolean
// reports whether the index is in range; empty slots come back with
// Entry.Valid unset.
func (c *Comp) MacTableRead(slot int) (mactable.Entry, bool) {
	return c.table.ReadSlot(slot)
}

// MacTableWrite manually inserts an address, bypassing normal learning. It
// returns the slot the address landed in and whether the write was accepted.
func (c *Comp) MacTableWrite(port int, addr eth.MacAddr) (int, bool) {
	slot, ok := c.table.WriteSlot(addr, port, c.CurrentTime())

	if ok && c.scrubber != nil {
		c.scrubber.TickLater()
	}

	return slot, ok
}

// MacTableClear invalidates every table entry. No lookup can observe a
// half-cleared table.
func (c *Comp) MacTableClear() {
	c.table.Clear()
}

// MacTableLearn enables or disables learning of source addresses.
func (c *Comp) MacTableLearn(enable bool) {
	c.learningEnabled = enable
}

// LearningEnabled reports whether source addresses are being learned.
func (c *Comp) LearningEnabled() bool {
	return c.learningEnabled
}

// SetPromiscuous marks a port to receive a copy of every frame.
func (c *Comp) SetPromiscuous(port int, enable bool) {
	c.portMustBeValid(port)
	c.promiscuous = c.promiscuous.Set(port, enable)
}

// PromiscuousMask returns the set of promiscuous ports.
func (c *Comp) PromiscuousMask() eth.PortMask {
	return c.promiscuous
}

// SetMissBcast marks a port to receive frames whose destination address
// missed the table.
func (c *Comp) SetMissBcast(port int, enable bool) {
	c.portMustBeValid(port)
	c.missBcast = c.missBcast.Set(port, enable)
}

// MissMask returns the set of ports that receive missed frames.
func (c *Comp) MissMask() eth.PortMask {
	return c.missBcast
}

// SetMissPolicy sets the miss mask for all ports at once.
func (c *Comp) SetMissPolicy(policy MissPolicy) {
	switch policy {
	case MissBroadcast:
		c.missBcast = eth.AllPorts(c.numPorts)
	case MissDrop:
		c.missBcast = 0
	}
}

// SetPortEnabled enables or disables a port as a forwarding target.
func (c *Comp) SetPortEnabled(port int, enable bool) {
	c.portMustBeValid(port)
	c.enabled = c.enabled.Set(port, enable)
}

// EnabledMask returns the set of enabled ports.
func (c *Comp) EnabledMask() eth.PortMask {
	return c.enabled
}

// NumPorts returns the number of switch ports.
func (c *Comp) NumPorts() int {
	return c.numPorts
}

// Counters returns a snapshot of all diagnostic counters, including the
// table's own counters.
func (c *Comp) Counters() Counters {
	counters := c.counters
	counters.Table = c.table.Counters()

	return counters
}

func (c *Comp) portMustBeValid(port int) {
	if port < 0 || port >= c.numPorts {
		panic("port index out of range")
	}
}
