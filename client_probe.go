package magpie

import (
	"fmt"
	"sort"
	"strings"
)

// ServerCapabilities is a point-in-time snapshot of what a server
// advertises.
type ServerCapabilities struct {
	Banner         string
	PostingAllowed bool
	Version        int
	Implementation string
	Capabilities   map[string][]string
}

// Has reports whether the capability is advertised.
func (s *ServerCapabilities) Has(name string) bool {
	_, ok := s.Capabilities[strings.ToUpper(name)]
	return ok
}

// String formats the snapshot for display.
func (s *ServerCapabilities) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Banner: %s\n", s.Banner)
	fmt.Fprintf(&b, "Posting allowed: %v\n", s.PostingAllowed)
	fmt.Fprintf(&b, "Version: %d\n", s.Version)
	if s.Implementation != "" {
		fmt.Fprintf(&b, "Implementation: %s\n", s.Implementation)
	}

	names := make([]string, 0, len(s.Capabilities))
	for name := range s.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("Capabilities:\n")
	for _, name := range names {
		if args := s.Capabilities[name]; len(args) > 0 {
			fmt.Fprintf(&b, "  %s %s\n", name, strings.Join(args, " "))
		} else {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return b.String()
}

// ServerCapabilities snapshots the connected server's advertised state,
// refreshing the capability cache if it has been invalidated.
func (c *Client) ServerCapabilities() (*ServerCapabilities, error) {
	caps, err := c.Capabilities()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &ServerCapabilities{
		Banner:         c.banner,
		PostingAllowed: c.postingAllowed,
		Version:        c.version,
		Implementation: c.implementation,
		Capabilities:   caps,
	}, nil
}

// Probe connects to a server, captures its capabilities, and disconnects.
func Probe(address string) (*ServerCapabilities, error) {
	return ProbeWithConfig(address, nil)
}

// ProbeWithConfig probes with a custom client configuration.
func ProbeWithConfig(address string, config *ClientConfig) (*ServerCapabilities, error) {
	client := NewClient(config)
	if err := client.Dial(address); err != nil {
		return nil, err
	}
	defer client.Quit()

	return client.ServerCapabilities()
}
