// Package config defines the settings shared by the alarm-clock CLI and daemon
// and provides helpers to load, validate and save them in YAML format.
//
// Validate fills defaults, so a missing settings file still yields a usable
// configuration: a YAML alarm store next to the binary, a 5s preparation
// bound and a control endpoint on 127.0.0.1:7450.
package config
