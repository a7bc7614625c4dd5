// Package process keeps a single alarm-clock daemon per store by means of a
// PID file whose owner is checked against the live process table.
package process
