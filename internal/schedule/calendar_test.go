package schedule

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWindowsRepeating(t *testing.T) {
	ev := newTournament(2)

	windows := expandWindows(ev, day0, day0.AddDate(0, 0, 15))
	require.Len(t, windows, 3)
	for i, w := range windows {
		day := day0.AddDate(0, 0, 7*i)
		assert.Equal(t, day.Add(8*time.Hour), w.start)
		assert.Equal(t, day.Add(20*time.Hour), w.end)
		assert.Equal(t, fieldID(1), w.fieldID)
	}
}

func TestExpandWindowsClipsToRange(t *testing.T) {
	ev := newTournament(2)

	windows := expandWindows(ev, at(10, 0), at(18, 30))
	require.Len(t, windows, 1)
	assert.Equal(t, at(10, 0), windows[0].start)
	assert.Equal(t, at(18, 30), windows[0].end)

	// Range ends before the slot opens
	assert.Empty(t, expandWindows(ev, day0, at(7, 0)))
}

func TestExpandWindowsRepeatingBounds(t *testing.T) {
	ev := newTournament(2)
	ev.TimeSlots[0].StartDate = day0.AddDate(0, 0, 7)
	ev.TimeSlots[0].EndDate = utils.Ptr(day0.AddDate(0, 0, 14))

	windows := expandWindows(ev, day0, day0.AddDate(0, 0, 60))
	require.Len(t, windows, 2)
	assert.Equal(t, day0.AddDate(0, 0, 7).Add(8*time.Hour), windows[0].start)
	assert.Equal(t, day0.AddDate(0, 0, 14).Add(8*time.Hour), windows[1].start)
}

func TestExpandWindowsWeekdayFromStartDate(t *testing.T) {
	ev := newTournament(2)
	// Sunday, no explicit weekday
	ev.TimeSlots[0].DayOfWeek = nil
	ev.TimeSlots[0].StartDate = day0.AddDate(0, 0, 1)

	windows := expandWindows(ev, day0, day0.AddDate(0, 0, 8))
	require.Len(t, windows, 1)
	assert.Equal(t, time.Sunday, windows[0].start.Weekday())
}

func TestExpandWindowsSingleOccurrence(t *testing.T) {
	ev := newTournament(2)
	ev.TimeSlots = []event.TimeSlot{{
		ID:               uuid.New(),
		StartDate:        day0,
		EndDate:          utils.Ptr(day0.AddDate(0, 0, 1)),
		StartTimeMinutes: 18 * 60,
		EndTimeMinutes:   2 * 60,
	}}

	windows := expandWindows(ev, day0, day0.AddDate(0, 0, 3))
	require.Len(t, windows, 1)
	assert.Equal(t, at(18, 0), windows[0].start)
	assert.Equal(t, day0.AddDate(0, 0, 1).Add(2*time.Hour), windows[0].end)
}

func TestExpandWindowsFieldsAndRentals(t *testing.T) {
	ev := newTournament(2)
	second := addField(ev, 2)
	third := addField(ev, 3)

	// Restrict the shared slot to field 2 and give field 3 its own rental
	ev.TimeSlots[0].FieldID = second
	rental := event.TimeSlot{
		ID:               uuid.New(),
		FieldID:          third,
		Rental:           true,
		StartDate:        day0,
		StartTimeMinutes: 8 * 60,
		EndTimeMinutes:   12 * 60,
	}
	ev.Fields[2].RentalSlots = []event.TimeSlot{rental}

	windows := expandWindows(ev, day0, day0.Add(24*time.Hour))
	require.Len(t, windows, 2)
	assert.Equal(t, second, windows[0].fieldID)
	assert.Equal(t, third, windows[1].fieldID)
	assert.Equal(t, at(12, 0), windows[1].end)
}

func TestExpandWindowsOrdersByFieldNumber(t *testing.T) {
	ev := newTournament(2)
	// Declared out of order
	ev.Fields = []event.Field{
		{ID: fieldID(3), FieldNumber: 3},
		{ID: fieldID(1), FieldNumber: 1},
		{ID: fieldID(2), FieldNumber: 2},
	}

	windows := expandWindows(ev, day0, day0.Add(24*time.Hour))
	require.Len(t, windows, 3)
	for i, w := range windows {
		assert.Equal(t, i+1, w.fieldNumber)
	}
}

func TestValidateSlots(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ev *event.Event)
		wantErr bool
	}{
		{"valid", func(ev *event.Event) {}, false},
		{"ends at start", func(ev *event.Event) {
			ev.TimeSlots[0].EndTimeMinutes = ev.TimeSlots[0].StartTimeMinutes
		}, true},
		{"repeating overnight", func(ev *event.Event) {
			ev.TimeSlots[0].StartTimeMinutes = 22 * 60
			ev.TimeSlots[0].EndTimeMinutes = 2 * 60
		}, true},
		{"one-off overnight without end date", func(ev *event.Event) {
			ev.TimeSlots[0].Repeating = false
			ev.TimeSlots[0].StartTimeMinutes = 22 * 60
			ev.TimeSlots[0].EndTimeMinutes = 2 * 60
		}, true},
		{"one-off across midnight", func(ev *event.Event) {
			ev.TimeSlots[0].Repeating = false
			ev.TimeSlots[0].EndDate = utils.Ptr(day0.AddDate(0, 0, 1))
			ev.TimeSlots[0].StartTimeMinutes = 22 * 60
			ev.TimeSlots[0].EndTimeMinutes = 2 * 60
		}, false},
		{"day of week", func(ev *event.Event) {
			ev.TimeSlots[0].DayOfWeek = utils.Ptr(7)
		}, true},
		{"minutes past midnight", func(ev *event.Event) {
			ev.TimeSlots[0].EndTimeMinutes = 25 * 60
		}, true},
		{"negative start", func(ev *event.Event) {
			ev.TimeSlots[0].StartTimeMinutes = -1
		}, true},
		{"backwards rental", func(ev *event.Event) {
			ev.Fields[0].RentalSlots = []event.TimeSlot{{
				ID:               uuid.New(),
				StartDate:        day0,
				StartTimeMinutes: 12 * 60,
				EndTimeMinutes:   9 * 60,
			}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newTournament(4)
			tt.mutate(ev)

			err := ValidateSlots(ev)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)

			_, err = Schedule(ev, DefaultOptions())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSearchRange(t *testing.T) {
	ev := newTournament(2)
	opts := DefaultOptions()

	from, to := searchRange(ev, opts)
	assert.Equal(t, ev.Start, from)
	assert.Equal(t, ev.End, to)

	ev.NoFixedEndDateTime = true
	ev.End = time.Time{}
	from, to = searchRange(ev, opts)
	assert.Equal(t, ev.Start, from)
	assert.Equal(t, ev.Start.Add(DefaultHorizon), to)
}

func TestWindowAllows(t *testing.T) {
	div := uuid.New()
	w := window{}
	assert.True(t, w.allows(div))

	w.divisions = event.IDList{uuid.New()}
	assert.False(t, w.allows(div))

	w.divisions = append(w.divisions, div)
	assert.True(t, w.allows(div))
}
