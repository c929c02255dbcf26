package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sinopehome/gt125/internal/gateway"
)

// Gateway is a GT125 seen on the network.
type Gateway struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "GT125-4A21.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// HTTPPort is the port of the advertised web service
	HTTPPort int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the entry was received
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("GT125 %s (%s) at %s", g.Instance, g.Hostname, g.IP)
}

// Address returns the host:port of the binary protocol, which always
// listens on gateway.DefaultPort regardless of the advertised web port.
func (g *Gateway) Address() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(gateway.DefaultPort))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
