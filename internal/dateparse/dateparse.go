// Package dateparse turns what users type into a form's date field into the
// YYYY-MM-DD the backend stores. Indonesian and English keywords are both
// understood.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the date format the backend accepts.
const Layout = "2006-01-02"

var (
	isoPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	localPattern   = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)
	inDaysPattern  = regexp.MustCompile(`^(?:in (\d+) days?|(\d+) hari lagi)$`)
	inWeeksPattern = regexp.MustCompile(`^(?:in (\d+) weeks?|(\d+) minggu lagi)$`)
)

// Parse resolves input relative to today. Unrecognized input is returned
// trimmed and unchanged so the backend can report it.
func Parse(input string) string {
	return ParseFrom(input, time.Now())
}

// ParseFrom resolves input relative to now.
func ParseFrom(input string, now time.Time) string {
	s := strings.ToLower(strings.Join(strings.Fields(input), " "))

	switch s {
	case "today", "hari ini", "hr ini":
		return now.Format(Layout)
	case "tomorrow", "besok":
		return now.AddDate(0, 0, 1).Format(Layout)
	case "yesterday", "kemarin", "kmrn":
		return now.AddDate(0, 0, -1).Format(Layout)
	case "lusa":
		return now.AddDate(0, 0, 2).Format(Layout)
	case "next week", "minggu depan":
		return now.AddDate(0, 0, 7).Format(Layout)
	case "next month", "bulan depan":
		return now.AddDate(0, 1, 0).Format(Layout)
	case "eom", "end of month", "akhir bulan":
		return endOfMonth(now).Format(Layout)
	case "som", "start of month", "awal bulan":
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).Format(Layout)
	}

	if day, ok := weekday(s); ok {
		return nextWeekday(now, day).Format(Layout)
	}

	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if days, err := strconv.Atoi(rest); err == nil {
			return now.AddDate(0, 0, days).Format(Layout)
		}
	}
	if n, ok := count(inDaysPattern, s); ok {
		return now.AddDate(0, 0, n).Format(Layout)
	}
	if n, ok := count(inWeeksPattern, s); ok {
		return now.AddDate(0, 0, n*7).Format(Layout)
	}

	if isoPattern.MatchString(s) {
		return s
	}
	// Indonesian order: day first.
	if m := localPattern.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location())
		if t.Day() == d && int(t.Month()) == mo {
			return t.Format(Layout)
		}
	}

	return strings.TrimSpace(input)
}

// IsValid reports whether input resolves to a date.
func IsValid(input string) bool {
	_, err := time.Parse(Layout, Parse(input))
	return err == nil
}

func count(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g != "" {
			n, err := strconv.Atoi(g)
			return n, err == nil
		}
	}
	return 0, false
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "minggu": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "senin": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "selasa": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "rabu": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "kamis": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "jumat": time.Friday, "jum'at": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sabtu": time.Saturday,
}

func weekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[s]
	return d, ok
}

// nextWeekday returns the next occurrence of target strictly after now.
func nextWeekday(now time.Time, target time.Weekday) time.Time {
	days := int(target - now.Weekday())
	if days <= 0 {
		days += 7
	}
	return now.AddDate(0, 0, days)
}

func endOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
}
