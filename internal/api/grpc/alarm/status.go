package alarm

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Status is the daemon state reported by the Status method.
type Status struct {
	// Playback is the current playback controller state.
	Playback PlaybackStatus
	// Armed lists the live wake-ups ordered by alarm id.
	Armed []ArmedAlarm
	// Warnings lists the alarms that could not be armed.
	Warnings []AlarmWarning
}

// PlaybackStatus mirrors the playback controller state.
type PlaybackStatus struct {
	State       string
	Description string
	Cause       string
	Session     string
	Fallback    bool
}

// ArmedAlarm is one live wake-up.
type ArmedAlarm struct {
	AlarmID int64
	At      time.Time
}

// AlarmWarning is a persistent scheduling failure.
type AlarmWarning struct {
	AlarmID int64
	Error   string
	At      time.Time
}

// ToStruct encodes the status as a protobuf Struct.
func (s Status) ToStruct() (*structpb.Struct, error) {
	armed := make([]any, 0, len(s.Armed))
	for _, a := range s.Armed {
		armed = append(armed, map[string]any{
			"alarm_id": a.AlarmID,
			"at":       a.At.UTC().Format(time.RFC3339),
		})
	}

	warnings := make([]any, 0, len(s.Warnings))
	for _, w := range s.Warnings {
		warnings = append(warnings, map[string]any{
			"alarm_id": w.AlarmID,
			"error":    w.Error,
			"at":       w.At.UTC().Format(time.RFC3339),
		})
	}

	return structpb.NewStruct(map[string]any{
		"playback": map[string]any{
			"state":       s.Playback.State,
			"description": s.Playback.Description,
			"cause":       s.Playback.Cause,
			"session":     s.Playback.Session,
			"fallback":    s.Playback.Fallback,
		},
		"armed":    armed,
		"warnings": warnings,
	})
}

// StatusFromStruct decodes a Status produced by ToStruct.
func StatusFromStruct(st *structpb.Struct) (Status, error) {
	var result Status

	fields := st.GetFields()

	pb := fields["playback"].GetStructValue().GetFields()
	result.Playback = PlaybackStatus{
		State:       pb["state"].GetStringValue(),
		Description: pb["description"].GetStringValue(),
		Cause:       pb["cause"].GetStringValue(),
		Session:     pb["session"].GetStringValue(),
		Fallback:    pb["fallback"].GetBoolValue(),
	}

	for _, v := range fields["armed"].GetListValue().GetValues() {
		item := v.GetStructValue().GetFields()

		at, err := parseTime(item["at"])
		if err != nil {
			return Status{}, err
		}

		result.Armed = append(result.Armed, ArmedAlarm{
			AlarmID: int64(item["alarm_id"].GetNumberValue()),
			At:      at,
		})
	}

	for _, v := range fields["warnings"].GetListValue().GetValues() {
		item := v.GetStructValue().GetFields()

		at, err := parseTime(item["at"])
		if err != nil {
			return Status{}, err
		}

		result.Warnings = append(result.Warnings, AlarmWarning{
			AlarmID: int64(item["alarm_id"].GetNumberValue()),
			Error:   item["error"].GetStringValue(),
			At:      at,
		})
	}

	return result, nil
}

func parseTime(v *structpb.Value) (time.Time, error) {
	at, err := time.Parse(time.RFC3339, v.GetStringValue())
	if err != nil {
		return time.Time{}, fmt.Errorf("decode status time: %w", err)
	}

	return at, nil
}
