// Package alarmrepo implements persistence for alarms.
//
// Two stores satisfy the Repository interface: FileRepository keeps every
// alarm in one YAML document, SQLiteRepository keeps them in a table. Both
// translate domain alarms through the same record type, so the audio
// preference variant survives the round trip.
package alarmrepo
