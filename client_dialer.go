package magpie

import (
	"context"
	"crypto/tls"
	stdio "io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/synqronlabs/magpie/dns"
	"github.com/synqronlabs/magpie/overview"
)

// TLSMode selects how transport security is negotiated.
type TLSMode int

const (
	// TLSModeNone connects in plaintext and never upgrades.
	TLSModeNone TLSMode = iota

	// TLSModeImplicit wraps the connection in TLS before the greeting
	// (NNTPS, port 563).
	TLSModeImplicit

	// TLSModeStartTLSIfAvailable upgrades via STARTTLS when the server
	// advertises it, and continues in plaintext otherwise.
	TLSModeStartTLSIfAvailable

	// TLSModeStartTLSRequired upgrades via STARTTLS and fails the
	// connection when the server does not offer it.
	TLSModeStartTLSRequired
)

// Dialer provides one-call session establishment: connect, read the
// greeting, load capabilities, resolve reader mode, negotiate TLS, and
// authenticate.
type Dialer struct {
	Host string
	Port int // 0 selects 119, or 563 for implicit TLS

	TLSMode    TLSMode
	TLSConfig  *tls.Config
	ServerName string // SNI override; defaults to Host

	Username string
	Password string

	// ReaderMode requests MODE READER when the server does not advertise
	// the READER capability.
	ReaderMode bool

	// ProxyAddr routes the connection through a SOCKS5 proxy.
	ProxyAddr string

	// Resolver, when set, resolves Host before dialing. TLS verification
	// still uses the hostname.
	Resolver dns.Resolver

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	HeaderDecoder overview.HeaderDecoder

	Logger      *slog.Logger
	Debug       bool
	DebugWriter stdio.Writer
}

// NewDialer creates a Dialer for the given server.
func NewDialer(host string, port int) *Dialer {
	return &Dialer{Host: host, Port: port}
}

// Dial establishes a new session.
func (d *Dialer) Dial() (*Client, error) {
	return d.DialContext(context.Background())
}

// DialContext establishes a new session with context support.
func (d *Dialer) DialContext(ctx context.Context) (*Client, error) {
	config := &ClientConfig{
		TLSConfig:      d.tlsConfig(),
		ReaderMode:     d.ReaderMode,
		HeaderDecoder:  d.HeaderDecoder,
		ConnectTimeout: d.ConnectTimeout,
		ReadTimeout:    d.ReadTimeout,
		WriteTimeout:   d.WriteTimeout,
		Logger:         d.Logger,
		Debug:          d.Debug,
		DebugWriter:    d.DebugWriter,
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if dialFunc := d.dialFunc(config.ConnectTimeout); dialFunc != nil {
		config.DialFunc = dialFunc
	}

	client := NewClient(config)
	address := net.JoinHostPort(d.Host, strconv.Itoa(d.port()))

	var err error
	if d.TLSMode == TLSModeImplicit {
		err = client.DialTLSContext(ctx, address)
	} else {
		err = client.DialContext(ctx, address)
	}
	if err != nil {
		return nil, err
	}

	// STARTTLS if requested
	if d.TLSMode == TLSModeStartTLSIfAvailable || d.TLSMode == TLSModeStartTLSRequired {
		if client.HasCapability(CapStartTLS) {
			if err := client.StartTLS(); err != nil {
				client.Close()
				return nil, err
			}
		} else if d.TLSMode == TLSModeStartTLSRequired {
			client.Close()
			return nil, ErrTLSNotSupported
		}
	}

	// Authenticate if credentials provided
	if d.Username != "" {
		if err := client.Login(d.Username, d.Password); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

func (d *Dialer) port() int {
	if d.Port > 0 {
		return d.Port
	}
	if d.TLSMode == TLSModeImplicit {
		return DefaultTLSPort
	}
	return DefaultPort
}

// tlsConfig pins the SNI name to the configured hostname so resolver- and
// proxy-routed dials still verify against it.
func (d *Dialer) tlsConfig() *tls.Config {
	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if tlsConfig.ServerName == "" {
		name := d.ServerName
		if name == "" {
			name = d.Host
		}
		tlsConfig = tlsConfig.Clone()
		tlsConfig.ServerName = name
	}
	return tlsConfig
}

// dialFunc builds the connection hook for proxy- or resolver-backed dials.
// nil means the client's plain dialer.
func (d *Dialer) dialFunc(timeout time.Duration) func(context.Context, string, string) (net.Conn, error) {
	if d.ProxyAddr == "" && d.Resolver == nil {
		return nil
	}

	resolve := func(ctx context.Context, address string) (string, error) {
		if d.Resolver == nil {
			return address, nil
		}
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return "", err
		}
		ips, err := d.Resolver.LookupIP(ctx, host)
		if err != nil {
			return "", err
		}
		return net.JoinHostPort(ips[0].String(), port), nil
	}

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		address, err := resolve(ctx, address)
		if err != nil {
			return nil, err
		}

		forward := &net.Dialer{Timeout: timeout}
		if d.ProxyAddr == "" {
			return forward.DialContext(ctx, network, address)
		}

		socks, err := proxy.SOCKS5("tcp", d.ProxyAddr, nil, forward)
		if err != nil {
			return nil, err
		}
		if cd, ok := socks.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, address)
		}
		return socks.Dial(network, address)
	}
}
