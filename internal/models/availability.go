package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time within a day, stored as seconds since
// midnight. It carries no date and no timezone.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	var h, m, s int
	switch n, _ := fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s); n {
	case 2, 3:
	default:
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return TimeOfDay(h*3600 + m*60 + s), nil
}

// String renders the time as HH:MM, or HH:MM:SS when seconds are present.
func (t TimeOfDay) String() string {
	h := int(t) / 3600
	m := int(t) % 3600 / 60
	s := int(t) % 60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MarshalJSON encodes the time as its string form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses the string form.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AvailabilitySlot is one recurring weekly window during which a volunteer is
// schedule-active. Day 0 is Monday, matching the stored representation.
type AvailabilitySlot struct {
	DayOfWeek int       `json:"day_of_week"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Enabled   bool      `json:"enabled"`
}

// Validate rejects slots that must never be stored.
func (s AvailabilitySlot) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be between 0 and 6, got %d", s.DayOfWeek)
	}
	if s.EndTime <= s.StartTime {
		return fmt.Errorf("end_time must be later than start_time")
	}
	return nil
}

// Matches reports whether the slot covers the given instant. Both bounds are
// inclusive: an instant of exactly start or end counts as active. The instant
// must already be in the wall-clock frame the slots are defined in.
func (s AvailabilitySlot) Matches(moment time.Time) bool {
	if !s.Enabled {
		return false
	}
	// time.Weekday starts at Sunday; slots start at Monday.
	if (int(moment.Weekday())+6)%7 != s.DayOfWeek {
		return false
	}
	tod := TimeOfDay(moment.Hour()*3600 + moment.Minute()*60 + moment.Second())
	return s.StartTime <= tod && tod <= s.EndTime
}

// UnmarshalJSON applies the persisted default of enabled=true when the field
// is absent, then validates times eagerly.
func (s *AvailabilitySlot) UnmarshalJSON(data []byte) error {
	var raw struct {
		DayOfWeek int       `json:"day_of_week"`
		StartTime TimeOfDay `json:"start_time"`
		EndTime   TimeOfDay `json:"end_time"`
		Enabled   *bool     `json:"enabled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.DayOfWeek = raw.DayOfWeek
	s.StartTime = raw.StartTime
	s.EndTime = raw.EndTime
	s.Enabled = raw.Enabled == nil || *raw.Enabled
	return nil
}

// ScheduleActive reports whether any slot covers the instant. Overlapping
// slots do not stack; the volunteer is simply active.
func ScheduleActive(slots []AvailabilitySlot, moment time.Time) bool {
	for _, slot := range slots {
		if slot.Matches(moment) {
			return true
		}
	}
	return false
}

// ParseSlots deserializes the persisted JSON representation. The parse is
// fail-closed: one malformed or invalid entry rejects the whole document.
// An empty document yields no slots.
func ParseSlots(raw string) ([]AvailabilitySlot, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}

	var slots []AvailabilitySlot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		// Older records wrap the list in an object.
		var wrapped struct {
			Slots []AvailabilitySlot `json:"slots"`
		}
		if wrapErr := json.Unmarshal([]byte(raw), &wrapped); wrapErr != nil {
			return nil, fmt.Errorf("availability document is not valid JSON: %w", err)
		}
		slots = wrapped.Slots
	}

	for i, slot := range slots {
		if err := slot.Validate(); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return slots, nil
}

// SerializeSlots validates and encodes slots for persistence.
func SerializeSlots(slots []AvailabilitySlot) (string, error) {
	for i, slot := range slots {
		if err := slot.Validate(); err != nil {
			return "", fmt.Errorf("slot %d: %w", i, err)
		}
	}
	if len(slots) == 0 {
		return "[]", nil
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
