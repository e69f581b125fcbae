package metrics

// Bytes transport-level byte counters
type Bytes interface {
	OnSent(n int)
	OnRecv(n int)
}

// Messages message-level counters
type Messages interface {
	// OnPublished one wire message handed to the transport
	OnPublished()
	// OnReceived one wire message read off the transport
	OnReceived()
	// OnDropped inbound message matched no active subscription
	OnDropped()
	// OnDecodeError inbound message failed topic or envelope decoding.
	// Such messages never reach a callback, this counter is the only
	// place they stay observable
	OnDecodeError()
}

// Clients connection counters on the publisher side
type Clients interface {
	OnConnect()
	OnDisconnect()
}

// IFace provides access to counter groups
type IFace interface {
	Bytes() Bytes
	Messages() Messages
	Clients() Clients
}
