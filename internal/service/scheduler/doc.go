// Package scheduler arms, re-arms and cancels wake-up registrations for alarms.
//
// The scheduler holds at most one live registration per alarm id. Replacing
// a registration cancels the old one before the new one is armed, under a
// per-alarm lock, so two firings for the same alarm are never live at once.
// Operations on different alarms proceed concurrently.
//
// When a registration fires, OnFired loads the alarm, hands it to the
// Dispatcher and, for recurring alarms, arms the following occurrence. An arm
// that keeps failing after retries is a SchedulingError: it is logged, kept
// as a persistent warning, counted and escalated.
package scheduler
