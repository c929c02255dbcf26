package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = 80
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	v4 := []net.IP{net.ParseIP("192.168.1.50")}
	v6 := []net.IP{net.ParseIP("fe80::1")}

	tests := []struct {
		name   string
		entry  *zeroconf.ServiceEntry
		wantIP string
	}{
		{"hostname match", entry("web", "GT125-4A21.local.", v4, nil), "192.168.1.50"},
		{"instance match", entry("Sinope Gateway", "host.local.", v4, nil), "192.168.1.50"},
		{"lowercase", entry("gt125", "x.local.", v4, nil), "192.168.1.50"},
		{"ipv6 fallback", entry("GT125", "gt125.local.", nil, v6), "fe80::1"},
		{"ipv4 preferred", entry("GT125", "gt125.local.", v4, v6), "192.168.1.50"},
		{"other device", entry("printer", "hp.local.", v4, nil), ""},
		{"no address", entry("GT125", "gt125.local.", nil, nil), ""},
		{"nil entry", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := parseServiceEntry(tt.entry)
			if tt.wantIP == "" {
				if gw != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", gw)
				}
				return
			}
			if gw == nil {
				t.Fatal("parseServiceEntry() = nil")
			}
			if gw.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", gw.IP, tt.wantIP)
			}
		})
	}
}

func TestGatewayFields(t *testing.T) {
	gw := parseServiceEntry(entry("GT125", "gt125.local.", []net.IP{net.ParseIP("10.0.0.7")}, nil, "path=/", "flag"))
	if gw.Address() != "10.0.0.7:4550" {
		t.Errorf("Address() = %s", gw.Address())
	}
	if gw.HTTPPort != 80 {
		t.Errorf("HTTPPort = %d", gw.HTTPPort)
	}
	if gw.GetMetadata("path") != "/" || gw.GetMetadata("flag") != "" || gw.GetMetadata("missing") != "" {
		t.Errorf("Metadata = %v", gw.Metadata)
	}
	if gw.String() != "GT125 GT125 (gt125.local.) at 10.0.0.7" {
		t.Errorf("String() = %s", gw.String())
	}
	if (&Gateway{}).GetMetadata("x") != "" {
		t.Error("GetMetadata on nil map")
	}
}

func TestCollectDeduplicates(t *testing.T) {
	ch := make(chan *zeroconf.ServiceEntry, 3)
	v4 := []net.IP{net.ParseIP("192.168.1.50")}
	ch <- entry("GT125", "gt125.local.", v4, nil)
	ch <- entry("GT125 web", "gt125.local.", v4, nil)
	ch <- entry("printer", "hp.local.", []net.IP{net.ParseIP("192.168.1.9")}, nil)
	close(ch)

	if got := collect(ch); len(got) != 1 {
		t.Errorf("collect() = %d gateways, want 1", len(got))
	}
}

func TestNewScanner(t *testing.T) {
	if NewScanner().Timeout != DefaultScanTimeout {
		t.Error("NewScanner() timeout not defaulted")
	}
}
