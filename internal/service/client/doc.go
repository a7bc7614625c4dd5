// Package client implements the use cases behind the alarm-clock CLI.
//
// Every change is written to the repository first. The running daemon is
// then told about it on a best-effort basis: when no daemon is listening the
// change simply takes effect on its next start.
package client
