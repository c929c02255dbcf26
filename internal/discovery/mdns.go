package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/logging"
)

const (
	// ServiceType is the mDNS service type browsed for gateways
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second
)

var namePattern = regexp.MustCompile(`(?i)gt125|sinope`)

// Scanner handles mDNS gateway discovery
type Scanner struct {
	// Timeout is the maximum time to wait for announcements
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan browses for the timeout, or until ctx ends, and returns every
// gateway seen, once per address.
func (s *Scanner) Scan(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Gateway)
	go func() {
		done <- collect(entries)
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done.
	<-ctx.Done()
	select {
	case gateways := <-done:
		return gateways, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mDNS resolver did not stop")
	}
}

func collect(entries <-chan *zeroconf.ServiceEntry) []*Gateway {
	seen := make(map[string]bool)
	gateways := make([]*Gateway, 0)
	for entry := range entries {
		gw := parseServiceEntry(entry)
		if gw == nil {
			continue
		}
		if seen[gw.IP] {
			continue
		}
		seen[gw.IP] = true
		logging.Debug("Gateway discovered", zap.String("host", gw.Hostname), zap.String("ip", gw.IP))
		gateways = append(gateways, gw)
	}
	return gateways
}

// parseServiceEntry converts a zeroconf service entry to a Gateway.
// Returns nil if the entry does not look like a GT125.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	if entry == nil {
		return nil
	}
	if !namePattern.MatchString(entry.HostName) && !namePattern.MatchString(entry.Instance) {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Gateway{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		HTTPPort:     entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
