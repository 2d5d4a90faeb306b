package respwire

import "errors"

var ErrNoServers = errors.New("respwire: no servers available")

// Servers supplies the current list of server addresses. Implementations
// backed by service discovery may return a different list over time; the
// client re-reads it on every batch.
type Servers interface {
	List() []string
}

type staticServers struct {
	addresses []string
}

// NewStaticServers returns a fixed server list.
func NewStaticServers(addresses ...string) Servers {
	if len(addresses) == 0 {
		panic("NewStaticServers requires at least one address")
	}
	return &staticServers{addresses: addresses}
}

func (s *staticServers) List() []string {
	return s.addresses
}
