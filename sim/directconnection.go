package sim

// DirectConnection connects a number of ports and delivers messages between
// them with no propagation delay. It ticks round-robin over its plugged
// ports, draining each port's outgoing buffer into the destination port's
// incoming buffer.
type DirectConnection struct {
	*TickingComponent

	ports      []Port
	portIndex  map[RemotePort]int
	nextPortID int
}

// NewDirectConnection creates a DirectConnection that ticks at freq.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.portIndex = make(map[RemotePort]int)
	c.TickingComponent = NewTickingComponent(name, engine, freq, c)

	return c
}

// PlugIn marks the port as connected to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portIndex[port.AsRemote()] = len(c.ports) - 1

	port.SetConnection(c)
}

// Unplug removes a port from this DirectConnection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port when it becomes able to receive again.
// It wakes up every other plugged port so they can retry pending sends.
func (c *DirectConnection) NotifyAvailable(p Port) {
	c.Lock()
	ports := make([]Port, len(c.ports))
	copy(ports, c.ports)
	c.Unlock()

	for _, port := range ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port when it has a message ready to forward.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick drains each plugged port's outgoing buffer into the buffer of the
// port named as the message's destination.
func (c *DirectConnection) Tick() bool {
	c.Lock()
	numPorts := len(c.ports)
	c.Unlock()

	if numPorts == 0 {
		return false
	}

	madeProgress := false

	for i := 0; i < numPorts; i++ {
		c.Lock()
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		c.Unlock()

		if c.forwardAll(port) {
			madeProgress = true
		}
	}

	c.Lock()
	c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	c.Unlock()

	return madeProgress
}

func (c *DirectConnection) forwardAll(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := head.Meta().Dst

		c.Lock()
		idx, found := c.portIndex[dst]
		c.Unlock()

		if !found {
			panic("destination port " + string(dst) + " is not plugged into " +
				c.Name())
		}

		c.Lock()
		dstPort := c.ports[idx]
		c.Unlock()

		err := dstPort.Deliver(head)
		if err != nil {
			break
		}

		madeProgress = true
		port.RetrieveOutgoing()
	}

	return madeProgress
}
