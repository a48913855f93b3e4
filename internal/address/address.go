package address

// Address identifies a server on the network. The value is opaque to the
// registry; only the transport layer interprets it.
type Address string

func (a Address) String() string { return string(a) }
