// Package common holds helpers shared by several services.
//
// It provides a lightweight client for the daemon control service with
// per-call timeouts and domain-level results.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
