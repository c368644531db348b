package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(Config{})
	if r.config.Timeout != 5*time.Second {
		t.Errorf("Expected default timeout 5s, got %v", r.config.Timeout)
	}
	if r.config.Retries != 2 {
		t.Errorf("Expected default retries 2, got %d", r.config.Retries)
	}
	if len(r.config.Nameservers) == 0 {
		t.Error("Expected nameservers to be populated")
	}
}

func TestDNSResolver_LiteralIP(t *testing.T) {
	r := NewResolver(Config{Nameservers: []string{"192.0.2.1:53"}})

	ips, err := r.LookupIP(context.Background(), "198.51.100.9")
	if err != nil {
		t.Fatalf("LookupIP failed: %v", err)
	}
	if len(ips) != 1 || !ips[0].Equal(net.ParseIP("198.51.100.9")) {
		t.Errorf("Expected the literal IP back, got %v", ips)
	}
}

func TestMockResolver(t *testing.T) {
	mock := &MockResolver{
		Hosts: map[string][]net.IP{
			"news.example.com": {net.ParseIP("192.0.2.10")},
		},
	}

	ips, err := mock.LookupIP(context.Background(), "news.example.com")
	if err != nil {
		t.Fatalf("LookupIP failed: %v", err)
	}
	if len(ips) != 1 || !ips[0].Equal(net.ParseIP("192.0.2.10")) {
		t.Errorf("Unexpected addresses: %v", ips)
	}
	if len(mock.Queries) != 1 || mock.Queries[0] != "news.example.com" {
		t.Errorf("Query not recorded: %v", mock.Queries)
	}

	if _, err := mock.LookupIP(context.Background(), "missing.example.com"); err == nil {
		t.Error("Expected error for unknown host")
	}
}

func TestMockResolver_Err(t *testing.T) {
	sentinel := errors.New("boom")
	mock := &MockResolver{Err: sentinel}

	if _, err := mock.LookupIP(context.Background(), "x"); !errors.Is(err, sentinel) {
		t.Errorf("Expected configured error, got %v", err)
	}
}
