// Package daemon implements `alarm-clock run`, the long-lived process that
// keeps wake-ups armed and plays alarms when they fire.
//
// Run wires the alarm store, the wake timer, the trigger scheduler, the
// playback controller with its local and streaming sources, the observers
// and the gRPC control service, then blocks until its context ends.
package daemon
