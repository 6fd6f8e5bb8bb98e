package core

import (
	"errors"
	"time"
)

// TimeSlot coarse scheduling bucket
type TimeSlot string

const (
	SlotNone      TimeSlot = ""
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

// AllSlots lists the slots in day order.
var AllSlots = []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}

// ParseTimeSlot accepts "", morning, afternoon or evening.
func ParseTimeSlot(s string) (TimeSlot, bool) {
	switch TimeSlot(s) {
	case SlotNone, SlotMorning, SlotAfternoon, SlotEvening:
		return TimeSlot(s), true
	}
	return SlotNone, false
}

// DateLayout calendar date format used in storage and on the wire
const DateLayout = "2006-01-02"

// Task planner entry
type Task struct {
	ID        string    `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"-"`
	Text      string    `db:"text" json:"text"`
	Completed bool      `db:"completed" json:"completed"`
	Archived  bool      `db:"archived" json:"archived"`
	TimeSlot  TimeSlot  `db:"time_slot" json:"timeSlot,omitempty"`
	Date      string    `db:"date" json:"date,omitempty"` // YYYY-MM-DD, empty when unscheduled
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// HasSlot reports whether a time slot is assigned.
func (t Task) HasSlot() bool { return t.TimeSlot != SlotNone }

// FormatDate renders a calendar date for storage.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotCompleted = errors.New("task is not completed")
	ErrArchived     = errors.New("task is archived")
	ErrEmptyText    = errors.New("task text is empty")
)

// Interaction one handled chat turn
type Interaction struct {
	Utterance string    `json:"utterance"`
	Reply     string    `json:"reply"`
	At        time.Time `json:"at"`
}
