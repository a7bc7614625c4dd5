package alarmrepo

// SchemaSQL creates the alarms table. Days hold short weekday names joined
// by commas; an empty string is a one-shot alarm.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS alarms (
	id INTEGER PRIMARY KEY,
	label TEXT NOT NULL DEFAULT '',
	time_of_day TEXT NOT NULL,
	days TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL DEFAULT '',
	audio_kind TEXT NOT NULL,
	audio_tone TEXT NOT NULL,
	audio_uri TEXT NOT NULL DEFAULT '',
	audio_start_offset_ms INTEGER NOT NULL DEFAULT 0,
	snooze_minutes INTEGER NOT NULL DEFAULT 9,
	volume_ramp_minutes INTEGER NOT NULL DEFAULT 0,
	vibration_enabled INTEGER NOT NULL DEFAULT 0,
	enabled INTEGER NOT NULL DEFAULT 1,
	volume REAL NOT NULL DEFAULT 1.0,
	ring_seconds INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// columnMigrations add columns introduced after the first schema to
// databases created before them.
var columnMigrations = []struct {
	column     string
	definition string
}{
	{column: "ring_seconds", definition: "INTEGER NOT NULL DEFAULT 0"},
}
