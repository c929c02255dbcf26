// Package gateway manages TCP sessions with a GT125 gateway.
//
// A Session owns the sequence counter and serializes requests to one
// gateway. Every request runs on an authenticated connection: Session opens
// a connection, sends the login frame and checks the exact acknowledgement
// before the first data request. With KeepAlive unset a fresh connection is
// used per request, as the gateway's own tools do.
//
// Failures are returned as *Error, classified by Kind. Status bytes in
// replies are left to the caller; NewNackError maps them to errors.
package gateway
