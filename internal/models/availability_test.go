package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, raw string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(raw)
	require.NoError(t, err)
	return tod
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*3600), tod)

	tod, err = ParseTimeOfDay("17:30:15")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(17*3600+30*60+15), tod)

	for _, raw := range []string{"", "nine", "24:00", "12:60", "12:00:61", "-1:00"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestSlotMatchesInclusiveBounds(t *testing.T) {
	slot := AvailabilitySlot{
		DayOfWeek: 0, // Monday
		StartTime: mustTime(t, "09:00"),
		EndTime:   mustTime(t, "17:00"),
		Enabled:   true,
	}

	monday := func(h, m, s int) time.Time {
		// 2026-01-05 is a Monday.
		return time.Date(2026, 1, 5, h, m, s, 0, time.UTC)
	}

	assert.True(t, slot.Matches(monday(9, 0, 0)), "start bound is inclusive")
	assert.True(t, slot.Matches(monday(17, 0, 0)), "end bound is inclusive")
	assert.True(t, slot.Matches(monday(12, 30, 0)))
	assert.False(t, slot.Matches(monday(8, 59, 59)))
	assert.False(t, slot.Matches(monday(17, 0, 1)))

	tuesday := time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)
	assert.False(t, slot.Matches(tuesday), "wrong weekday never matches")
}

func TestSlotMatchesDisabled(t *testing.T) {
	slot := AvailabilitySlot{
		DayOfWeek: 0,
		StartTime: mustTime(t, "09:00"),
		EndTime:   mustTime(t, "17:00"),
		Enabled:   false,
	}
	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.False(t, slot.Matches(monday))
}

func TestSlotDayOfWeekMapping(t *testing.T) {
	// 2026-01-11 is a Sunday, the highest day index.
	sunday := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)
	slot := AvailabilitySlot{DayOfWeek: 6, StartTime: mustTime(t, "09:00"), EndTime: mustTime(t, "11:00"), Enabled: true}
	assert.True(t, slot.Matches(sunday))

	slot.DayOfWeek = 0
	assert.False(t, slot.Matches(sunday))
}

func TestSlotValidate(t *testing.T) {
	valid := AvailabilitySlot{DayOfWeek: 3, StartTime: mustTime(t, "08:00"), EndTime: mustTime(t, "10:00"), Enabled: true}
	assert.NoError(t, valid.Validate())

	badDay := valid
	badDay.DayOfWeek = 7
	assert.Error(t, badDay.Validate())

	badOrder := valid
	badOrder.EndTime = valid.StartTime
	assert.Error(t, badOrder.Validate(), "zero-length windows are invalid")

	reversed := valid
	reversed.StartTime, reversed.EndTime = valid.EndTime, valid.StartTime
	assert.Error(t, reversed.Validate())
}

func TestScheduleActiveAnySlot(t *testing.T) {
	slots := []AvailabilitySlot{
		{DayOfWeek: 0, StartTime: mustTime(t, "09:00"), EndTime: mustTime(t, "12:00"), Enabled: true},
		{DayOfWeek: 0, StartTime: mustTime(t, "14:00"), EndTime: mustTime(t, "18:00"), Enabled: true},
	}
	monday := func(h int) time.Time { return time.Date(2026, 1, 5, h, 0, 0, 0, time.UTC) }

	assert.True(t, ScheduleActive(slots, monday(10)))
	assert.True(t, ScheduleActive(slots, monday(15)))
	assert.False(t, ScheduleActive(slots, monday(13)), "gap between windows")
	assert.False(t, ScheduleActive(nil, monday(10)), "empty schedule is never active")
}

func TestParseSlotsEmpty(t *testing.T) {
	for _, raw := range []string{"", "[]"} {
		slots, err := ParseSlots(raw)
		require.NoError(t, err)
		assert.Nil(t, slots)
	}
}

func TestParseSlotsList(t *testing.T) {
	raw := `[{"day_of_week":0,"start_time":"09:00","end_time":"17:00","enabled":true}]`
	slots, err := ParseSlots(raw)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 0, slots[0].DayOfWeek)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.True(t, slots[0].Enabled)
}

func TestParseSlotsWrappedDocument(t *testing.T) {
	raw := `{"slots":[{"day_of_week":4,"start_time":"10:00","end_time":"12:00"}]}`
	slots, err := ParseSlots(raw)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 4, slots[0].DayOfWeek)
}

func TestParseSlotsEnabledDefaultsTrue(t *testing.T) {
	raw := `[{"day_of_week":2,"start_time":"08:00","end_time":"16:00"}]`
	slots, err := ParseSlots(raw)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Enabled)
}

func TestParseSlotsFailClosed(t *testing.T) {
	cases := []string{
		`not json`,
		`[{"day_of_week":9,"start_time":"09:00","end_time":"17:00"}]`,
		`[{"day_of_week":1,"start_time":"17:00","end_time":"09:00"}]`,
		`[{"day_of_week":1,"start_time":"25:00","end_time":"26:00"}]`,
		`[{"day_of_week":0,"start_time":"09:00","end_time":"17:00"},{"day_of_week":1,"start_time":"12:00","end_time":"12:00"}]`,
	}
	for _, raw := range cases {
		slots, err := ParseSlots(raw)
		assert.Error(t, err, raw)
		assert.Nil(t, slots, "one bad entry rejects the whole document")
	}
}

func TestSerializeSlotsRoundTrip(t *testing.T) {
	slots := []AvailabilitySlot{
		{DayOfWeek: 5, StartTime: mustTime(t, "09:30"), EndTime: mustTime(t, "15:45"), Enabled: false},
	}
	raw, err := SerializeSlots(slots)
	require.NoError(t, err)

	parsed, err := ParseSlots(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, slots[0], parsed[0])
}

func TestSerializeSlotsRejectsInvalid(t *testing.T) {
	_, err := SerializeSlots([]AvailabilitySlot{
		{DayOfWeek: 1, StartTime: mustTime(t, "17:00"), EndTime: mustTime(t, "09:00"), Enabled: true},
	})
	assert.Error(t, err)
}

func TestSerializeSlotsEmpty(t *testing.T) {
	raw, err := SerializeSlots(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestReportStatusFor(t *testing.T) {
	now := time.Now()
	report := Report{}
	assert.Equal(t, ReportStatusPending, report.StatusFor(false))
	assert.Equal(t, ReportStatusAccepted, report.StatusFor(true))

	report.CompletedAt = &now
	assert.Equal(t, ReportStatusCompleted, report.StatusFor(false))
	assert.Equal(t, ReportStatusCompleted, report.StatusFor(true), "completion wins over a stale hold")
}
