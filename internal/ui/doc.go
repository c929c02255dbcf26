// Package ui renders gt125 command output in the terminal.
//
// Output follows a "run once and exit" pattern: a header naming the command
// and its parameters, an optional spinner while waiting on the gateway, then
// a success or failure box. Failure boxes end with troubleshooting tips.
//
// The spinner (Wait) is only drawn on a terminal. When output is redirected
// the label is printed once and the operation runs silently, so commands
// remain scriptable.
package ui
