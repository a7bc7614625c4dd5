// Package alarm contains the core domain types of the alarm clock.
//
// An Alarm pairs a wall-clock TimeOfDay with a Recurrence (a set of weekdays,
// empty meaning one-shot) and an AudioPreference. Preferences are a closed set:
// LocalTone, which is always resolvable, and StreamingTrack, which embeds the
// LocalTone to fall back to.
package alarm
