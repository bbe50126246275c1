package matcher

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	colonTime    = regexp.MustCompile(`^(\d{1,2}):(\d{2}) ?(am|pm)?$`)
	meridiemTime = regexp.MustCompile(`^(\d{1,2}) ?(am|pm)$`)
	militaryTime = regexp.MustCompile(`^(\d{2})(\d{2})(?: ?(?:hours|hrs|h))?$`)
)

// clock is a time of day on the 24-hour clock.
type clock struct {
	hour   int
	minute int
}

func (c clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// parseClock reads H:MM with an optional am/pm suffix, H followed by am/pm,
// or a four digit 24-hour time. The input must already be normalized.
func parseClock(s string) (clock, bool) {
	switch s {
	case "noon", "midday":
		return clock{hour: 12}, true
	case "midnight":
		return clock{}, true
	}

	if m := colonTime.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return toClock(hour, minute, m[3])
	}
	if m := meridiemTime.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return toClock(hour, 0, m[2])
	}
	if m := militaryTime.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return toClock(hour, minute, "")
	}
	return clock{}, false
}

func toClock(hour, minute int, meridiem string) (clock, bool) {
	if minute < 0 || minute > 59 {
		return clock{}, false
	}
	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return clock{}, false
		}
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return clock{}, false
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "pm" {
			hour += 12
		}
	default:
		return clock{}, false
	}
	return clock{hour: hour, minute: minute}, true
}
