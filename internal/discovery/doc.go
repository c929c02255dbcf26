// Package discovery looks for GT125 gateways on the local network.
//
// The gateway has no documented mDNS announcement; its embedded web server
// shows up on some networks as an "_http._tcp" service whose host or
// instance name contains "GT125" or "Sinope". Scanning browses that service
// type for the timeout and keeps matching entries. It is best effort: when
// nothing is found, the gateway address from the router's DHCP table can be
// passed with --host instead.
package discovery
