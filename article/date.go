package article

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	compactLayout = "20060102"
)

// Date is a calendar day without a time or zone. Articles and summaries are
// partitioned by Date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD or YYYYMMDD.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layout := isoLayout
	if len(s) == len(compactLayout) && !strings.Contains(s, "-") {
		layout = compactLayout
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or YYYYMMDD", s)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compact formats d as YYYYMMDD, the on-disk partition name.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var (
	monthDayYearRe = regexp.MustCompile(`([a-zA-Z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})`)
	clockRe        = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)`)
	offsetRe       = regexp.MustCompile(`(?i)(GMT|UTC)([+-])(\d+)`)
	isoDateRe      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// PartitionDate maps a human-readable publication timestamp such as
// "Feb. 6, 2026Updated 12:17 am GMT+8" to the calendar date it falls on in
// loc. The second return value is false when nothing could be parsed.
func PartitionDate(text string, loc *time.Location) (Date, bool) {
	if t, ok := parseMonthDayYear(text); ok {
		return DateOf(t.In(loc)), true
	}

	// A bare YYYY-MM-DD is taken as UTC midnight.
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Month() == time.Month(month) && t.Day() == day {
			return DateOf(t.In(loc)), true
		}
	}

	return Date{}, false
}

func parseMonthDayYear(text string) (time.Time, bool) {
	m := monthDayYearRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := monthAbbrev[strings.ToLower(m[1][:3])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	hour, minute := 0, 0
	if c := clockRe.FindStringSubmatch(text); c != nil {
		hour, _ = strconv.Atoi(c[1])
		minute, _ = strconv.Atoi(c[2])
		switch strings.ToLower(c[3]) {
		case "pm":
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			hour, minute = 0, 0
		}
	}

	offsetHours := 0
	if o := offsetRe.FindStringSubmatch(text); o != nil {
		offsetHours, _ = strconv.Atoi(o[3])
		if o[2] == "-" {
			offsetHours = -offsetHours
		}
	}

	zone := time.FixedZone(fmt.Sprintf("GMT%+d", offsetHours), offsetHours*3600)
	t := time.Date(year, month, day, hour, minute, 0, 0, zone)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
