package event

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// IDList is stored as a JSON array in a TEXT column.
type IDList []uuid.UUID

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]uuid.UUID(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IDList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into IDList", src)
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		ids = nil
	}
	*l = ids
	return nil
}

// Allows reports whether id is in the list. An empty list allows everything.
func (l IDList) Allows(id uuid.UUID) bool {
	return len(l) == 0 || slices.Contains(l, id)
}

type Division struct {
	ID      uuid.UUID `db:"id" json:"id"`
	EventID uuid.UUID `db:"event_id" json:"eventId"`
	Name    string    `db:"name" json:"name"`
	// Fields this division may play on, empty means any field
	FieldIDs IDList `db:"field_ids" json:"fieldIds"`
	Position int    `db:"position" json:"-"`
}

type Team struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	EventID    uuid.UUID  `db:"event_id" json:"eventId"`
	DivisionID uuid.UUID  `db:"division_id" json:"divisionId"`
	Name       string     `db:"name" json:"name"`
	Seed       int        `db:"seed" json:"seed"`
	CaptainID  *uuid.UUID `db:"captain_id" json:"captainId,omitempty"`
	PlayerIDs  IDList     `db:"player_ids" json:"playerIds"`
	Wins       int        `db:"wins" json:"wins"`
	Losses     int        `db:"losses" json:"losses"`
}

type Field struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	EventID     uuid.UUID  `db:"event_id" json:"eventId"`
	FieldNumber int        `db:"field_number" json:"fieldNumber"`
	Name        string     `db:"name" json:"name"`
	DivisionIDs IDList     `db:"division_ids" json:"divisionIds"`
	RentalSlots []TimeSlot `db:"-" json:"rentalSlots"`
}

// AcceptsDivision reports whether both the field and the division allow the pairing.
func (f *Field) AcceptsDivision(d *Division) bool {
	return f.DivisionIDs.Allows(d.ID) && d.FieldIDs.Allows(f.ID)
}

// TimeSlot is an availability template. Repeating slots recur on DayOfWeek between
// StartDate and EndDate, a non-repeating slot is one concrete window.
type TimeSlot struct {
	ID      uuid.UUID `db:"id" json:"id"`
	EventID uuid.UUID `db:"event_id" json:"eventId"`
	// uuid.Nil applies the slot to every field
	FieldID uuid.UUID `db:"field_id" json:"fieldId"`
	Rental  bool      `db:"rental" json:"rental"`

	// time.Weekday numbering, 0 is Sunday
	DayOfWeek        *int       `db:"day_of_week" json:"dayOfWeek,omitempty"`
	StartDate        time.Time  `db:"start_date" json:"startDate"`
	EndDate          *time.Time `db:"end_date" json:"endDate,omitempty"`
	Repeating        bool       `db:"repeating" json:"repeating"`
	StartTimeMinutes int        `db:"start_time_minutes" json:"startTimeMinutes"`
	EndTimeMinutes   int        `db:"end_time_minutes" json:"endTimeMinutes"`
	Price            int64      `db:"price" json:"price"`
	DivisionIDs      IDList     `db:"division_ids" json:"divisionIds"`
}

// Referee is a user who can officiate matches in the listed divisions.
type Referee struct {
	ID          uuid.UUID `db:"id" json:"id"`
	EventID     uuid.UUID `db:"event_id" json:"eventId"`
	Name        string    `db:"name" json:"name"`
	DivisionIDs IDList    `db:"division_ids" json:"divisionIds"`
	Position    int       `db:"position" json:"-"`
}
