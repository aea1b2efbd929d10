package sim

// SendError marks a failure to send or deliver a message.
type SendError struct {
}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	e := new(SendError)
	return e
}

// A Connection is a component that is connecting ports.
type Connection interface {
	Named
	Hookable

	// PlugIn connects a port to the connection.
	PlugIn(port Port)

	// Unplug removes a port from the connection.
	Unplug(port Port)

	// NotifyAvailable is called by a port to notify the connection that the
	// port can receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to notify the connection that a message
	// is waiting in the port's outgoing buffer.
	NotifySend()
}
