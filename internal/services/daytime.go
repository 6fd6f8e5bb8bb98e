package services

import (
	"strings"
	"time"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// DayTime resolved qualifier. Zero Date means no day was named.
type DayTime struct {
	Day      string
	TimeSlot core.TimeSlot
	Date     time.Time
}

// Empty reports whether nothing was recognised.
func (d DayTime) Empty() bool {
	return d.Date.IsZero() && d.TimeSlot == core.SlotNone
}

type slotToken struct {
	token string
	slot  core.TimeSlot
}

// explicit slot names first, coarse fallbacks last
var slotTokens = []slotToken{
	{"morning", core.SlotMorning},
	{"afternoon", core.SlotAfternoon},
	{"evening", core.SlotEvening},
	{"tonight", core.SlotEvening},
	{"noon", core.SlotAfternoon},
	{"am", core.SlotMorning},
	{"pm", core.SlotAfternoon},
	{"night", core.SlotEvening},
}

type relativeDay struct {
	token  string
	offset int
}

var relativeDays = []relativeDay{
	{"today", 0},
	{"tonight", 0},
	{"tomorrow", 1},
}

type weekdayToken struct {
	token   string
	weekday time.Weekday
}

// full names before abbreviations
var weekdayTokens = []weekdayToken{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
	{"mon", time.Monday},
	{"tues", time.Tuesday},
	{"tue", time.Tuesday},
	{"wed", time.Wednesday},
	{"thurs", time.Thursday},
	{"thur", time.Thursday},
	{"thu", time.Thursday},
	{"fri", time.Friday},
	{"sat", time.Saturday},
	{"sun", time.Sunday},
}

// ResolveDayTime maps qualifier text ("tuesday morning", "tomorrow pm") to a day and slot.
func ResolveDayTime(qualifier string, now time.Time) DayTime {
	q := strings.ToLower(qualifier)
	var out DayTime

	for _, st := range slotTokens {
		if strings.Contains(q, st.token) {
			out.TimeSlot = st.slot
			break
		}
	}

	for _, rd := range relativeDays {
		if strings.Contains(q, rd.token) {
			out.Day = rd.token
			out.Date = localMidnight(now, rd.offset)
			return out
		}
	}

	for _, wt := range weekdayTokens {
		if strings.Contains(q, wt.token) {
			out.Day = strings.ToLower(wt.weekday.String())
			out.Date = NextWeekday(now, wt.weekday)
			return out
		}
	}

	return out
}

// NextWeekday returns the next occurrence strictly after today, at local midnight.
// Naming today's weekday yields the same weekday next week.
func NextWeekday(now time.Time, target time.Weekday) time.Time {
	daysUntil := int(target) - int(now.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return localMidnight(now, daysUntil)
}

func localMidnight(now time.Time, addDays int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+addDays, 0, 0, 0, 0, now.Location())
}
