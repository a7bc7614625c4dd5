// Package notify mirrors playback transitions and scheduling warnings to an
// MQTT broker, so dashboards and home automation can follow the alarm clock.
package notify
