package sim

// DirectConnection connects ports without latency.
type DirectConnection struct {
	*TickingComponent

	nextPortID int
	ports      []Port
}

// PlugIn marks the port as connected to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	port.SetConnection(c)
}

// Unplug marks the port as no longer connected to this DirectConnection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the port can receive
// messages again.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.TickNow()
}

// NotifySend is called by a port to notify that a message is waiting in the
// port's outgoing buffer.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick updates the states of the connection and delivers messages.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := head.Meta().Dst
		c.portMustBeConnected(dst)

		err := dst.Deliver(head)
		if err != nil {
			break
		}

		port.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}

func (c *DirectConnection) portMustBeConnected(port Port) {
	for _, p := range c.ports {
		if p == port {
			return
		}
	}

	panic("dst port is not connected to the connection")
}

// NewDirectConnection creates a new DirectConnection object.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)
	return c
}
