package respwire

import (
	"github.com/orange-cat-cat/respwire/internal"
	"github.com/zeebo/xxh3"
)

// SelectServerFunc picks which server handles a key. It receives the key
// and the current server list and returns the chosen address.
type SelectServerFunc func(key string, servers []string) (string, error)

// DefaultSelectServer uses Jump Hash over an xxh3 digest of the key.
// Jump Hash gives even distribution and moves few keys when servers are
// added or removed.
func DefaultSelectServer(key string, servers []string) (string, error) {
	if len(servers) == 0 {
		return "", ErrNoServers
	}
	return servers[internal.JumpHash(xxh3.HashString(key), len(servers))], nil
}

// staticSelector is used in tests to always select a specific server.
func staticSelector(index int) SelectServerFunc {
	return func(key string, servers []string) (string, error) {
		if len(servers) == 0 {
			return "", ErrNoServers
		}
		return servers[index%len(servers)], nil
	}
}
