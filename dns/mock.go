package dns

import (
	"context"
	"fmt"
	"net"
)

// MockResolver is a Resolver backed by a static host table, for tests.
type MockResolver struct {
	// Hosts maps hostname to addresses.
	Hosts map[string][]net.IP

	// Err, if set, is returned by every lookup.
	Err error

	// Queries records the hostnames looked up, in order.
	Queries []string
}

// LookupIP returns the configured addresses for host.
func (m *MockResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	m.Queries = append(m.Queries, host)
	if m.Err != nil {
		return nil, m.Err
	}
	ips, ok := m.Hosts[host]
	if !ok || len(ips) == 0 {
		return nil, fmt.Errorf("dns: no addresses for %s", host)
	}
	return ips, nil
}
