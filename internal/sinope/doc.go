// Package sinope issues typed commands to Sinopé devices through a GT125.
//
// Client turns attribute names into registry lookups, frames and status
// interpretation. Reads return (value, ok, err): ok is false when the
// gateway says the device did not answer, which is not an error. Writes
// return ErrDeviceUnreachable in that case.
//
// Reports are pushed rather than written. SendReports sends the gateway's
// view of time, date, sunrise, sunset and outdoor temperature, normally to
// every device through protocol.Broadcast.
package sinope
