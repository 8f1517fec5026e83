package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// window is one concrete occurrence of a time slot on one field.
type window struct {
	fieldID     uuid.UUID
	fieldNumber int
	start, end  time.Time
	divisions   event.IDList
}

func (w window) allows(divisionID uuid.UUID) bool {
	return w.divisions.Allows(divisionID)
}

func (w window) covers(start, end time.Time) bool {
	return !start.Before(w.start) && !end.After(w.end)
}

// searchRange is the part of the calendar the packer may use. Open-ended events
// search past their nominal end up to the horizon.
func searchRange(ev *event.Event, opts Options) (time.Time, time.Time) {
	if !ev.NoFixedEndDateTime {
		return ev.Start, ev.End
	}
	base := ev.End
	if base.Before(ev.Start) {
		base = ev.Start
	}
	return ev.Start, base.Add(opts.Horizon)
}

// expandWindows turns the event's slots and every field's rental slots into concrete
// windows clipped to [from, to], ordered by start, field number, then field id.
func expandWindows(ev *event.Event, from, to time.Time) []window {
	var out []window
	for _, slot := range ev.TimeSlots {
		for i := range ev.Fields {
			f := &ev.Fields[i]
			if slot.FieldID != uuid.Nil && slot.FieldID != f.ID {
				continue
			}
			out = appendOccurrences(out, slot, f, from, to)
		}
	}
	for i := range ev.Fields {
		f := &ev.Fields[i]
		for _, slot := range f.RentalSlots {
			out = appendOccurrences(out, slot, f, from, to)
		}
	}

	slices.SortFunc(out, func(a, b window) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		if a.fieldNumber != b.fieldNumber {
			return a.fieldNumber - b.fieldNumber
		}
		if c := event.CompareIDs(a.fieldID, b.fieldID); c != 0 {
			return c
		}
		return a.end.Compare(b.end)
	})
	return out
}

// ValidateSlots rejects slots that would expand to nothing. A slot only crosses
// midnight when it is a one-off with an end date after its start date.
func ValidateSlots(ev *event.Event) error {
	check := func(slot event.TimeSlot, owner string) error {
		if slot.DayOfWeek != nil && (*slot.DayOfWeek < 0 || *slot.DayOfWeek > 6) {
			return configErrorf(uuid.Nil, "%s: day of week %d out of range", owner, *slot.DayOfWeek)
		}
		if slot.StartTimeMinutes < 0 || slot.StartTimeMinutes > minutesPerDay ||
			slot.EndTimeMinutes < 0 || slot.EndTimeMinutes > minutesPerDay {
			return configErrorf(uuid.Nil, "%s: times must be between 0 and %d minutes", owner, minutesPerDay)
		}
		multiDay := !slot.Repeating && slot.EndDate != nil &&
			midnight(*slot.EndDate, ev.Start.Location()).After(midnight(slot.StartDate, ev.Start.Location()))
		if !multiDay && slot.EndTimeMinutes <= slot.StartTimeMinutes {
			return configErrorf(uuid.Nil, "%s: ends at or before it starts", owner)
		}
		return nil
	}

	for _, slot := range ev.TimeSlots {
		if err := check(slot, fmt.Sprintf("time slot %s", slot.ID)); err != nil {
			return err
		}
	}
	for _, f := range ev.Fields {
		for _, slot := range f.RentalSlots {
			if err := check(slot, fmt.Sprintf("rental slot %s of field %s", slot.ID, f.ID)); err != nil {
				return err
			}
		}
	}
	return nil
}

const minutesPerDay = 24 * 60

func appendOccurrences(out []window, slot event.TimeSlot, f *event.Field, from, to time.Time) []window {
	loc := from.Location()

	if !slot.Repeating {
		day := midnight(slot.StartDate, loc)
		lastDay := day
		if slot.EndDate != nil {
			lastDay = midnight(*slot.EndDate, loc)
		}
		return appendClipped(out, slot, f, atMinute(day, slot.StartTimeMinutes), atMinute(lastDay, slot.EndTimeMinutes), from, to)
	}

	first := midnight(from, loc)
	if !slot.StartDate.IsZero() {
		if d := midnight(slot.StartDate, loc); d.After(first) {
			first = d
		}
	}
	last := midnight(to, loc)
	if slot.EndDate != nil {
		if d := midnight(*slot.EndDate, loc); d.Before(last) {
			last = d
		}
	}

	weekday := first.Weekday()
	if slot.DayOfWeek != nil {
		weekday = time.Weekday(*slot.DayOfWeek)
	} else if !slot.StartDate.IsZero() {
		weekday = slot.StartDate.In(loc).Weekday()
	}
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7

	for day := first.AddDate(0, 0, offset); !day.After(last); day = day.AddDate(0, 0, 7) {
		out = appendClipped(out, slot, f, atMinute(day, slot.StartTimeMinutes), atMinute(day, slot.EndTimeMinutes), from, to)
	}
	return out
}

func appendClipped(out []window, slot event.TimeSlot, f *event.Field, start, end, from, to time.Time) []window {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return out
	}
	return append(out, window{
		fieldID:     f.ID,
		fieldNumber: f.FieldNumber,
		start:       start,
		end:         end,
		divisions:   slot.DivisionIDs,
	})
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func atMinute(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, day.Location())
}
