package quota

import (
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`([+-])(\d{2}):(\d{2})`)

// ParseOffset reads a "+03:00" style UTC offset. The second result is false when
// no offset could be found, in which case callers fall back to UTC.
// Only the arithmetic offset is applied; no timezone database is consulted.
func ParseOffset(s string) (time.Duration, bool) {
	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

// LocalTime shifts now by the client offset and returns it in UTC, so that the
// calendar fields read as the client's wall clock.
func LocalTime(now time.Time, offset string) time.Time {
	d, _ := ParseOffset(offset)
	return now.UTC().Add(d)
}

// DayKey is the YYYY-MM-DD bucket key for the client's local date.
func DayKey(now time.Time, offset string) string {
	return LocalTime(now, offset).Format("2006-01-02")
}

// MonthKey is the YYYY-MM bucket key for the client's local month.
func MonthKey(now time.Time, offset string) string {
	return LocalTime(now, offset).Format("2006-01")
}

// Key returns the bucket key matching the plan's period.
func (p Plan) Key(now time.Time, offset string) string {
	if p.Period == PeriodMonthly {
		return MonthKey(now, offset)
	}
	return DayKey(now, offset)
}

// StartOfDay returns the instant, in UTC, at which the local day containing
// now began.
func StartOfDay(now time.Time, offset string) time.Time {
	d, _ := ParseOffset(offset)
	local := LocalTime(now, offset)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(-d)
}
