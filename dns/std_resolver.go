package dns

import (
	"context"
	"net"
)

// StdResolver implements Resolver using the standard library resolver.
type StdResolver struct {
	// Resolver is the underlying resolver. nil means net.DefaultResolver.
	Resolver *net.Resolver
}

// LookupIP resolves host via the system resolver.
func (r *StdResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	addrs, err := res.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}
