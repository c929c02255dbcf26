// Package server is the HTTP side of serve mode.
//
// It exposes three endpoints:
//
//	/metrics       Prometheus exposition of the process and gateway collectors
//	/api/devices   JSON array of the latest snapshot of every configured device
//	/ws            websocket stream; every new snapshot is pushed as one JSON
//	               text message, preceded on connect by the current snapshots
//
// The Hub implements poller.Sink so the poller can publish into it directly.
// Slow websocket clients whose send buffer fills up are disconnected rather
// than allowed to stall publishing.
package server
