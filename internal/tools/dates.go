package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var pastDaysPattern = regexp.MustCompile(`^(?:past|last)\s+(\d+)\s+days?$`)

// ParseDate resolves a date parameter relative to now. It accepts
// "today", "yesterday", "last week", "past N days", "last month" and
// YYYY-MM-DD, and returns the start of the resolved day in now's location.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	today := startOfDay(now)

	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "last week", "past week":
		return today.AddDate(0, 0, -7), nil
	case "last month", "past month":
		return today.AddDate(0, -1, 0), nil
	case "last year", "past year":
		return today.AddDate(-1, 0, 0), nil
	}

	if m := pastDaysPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day count in %q", s)
		}
		return today.AddDate(0, 0, -n), nil
	}

	t, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q, use today, yesterday, last week, past N days, last month or YYYY-MM-DD", s)
	}
	return t, nil
}

// EndOfDay returns the last instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dateRange reads date_from and date_to. date_to covers its whole day.
func dateRange(p Params, now time.Time) (from, to time.Time, err error) {
	fromText, err := p.String("date_from")
	if err != nil {
		return from, to, err
	}
	toText, err := p.String("date_to")
	if err != nil {
		return from, to, err
	}

	if fromText != "" {
		if from, err = ParseDate(fromText, now); err != nil {
			return from, to, invalidParam("date_from", err.Error())
		}
	}
	if toText != "" {
		day, err := ParseDate(toText, now)
		if err != nil {
			return from, to, invalidParam("date_to", err.Error())
		}
		to = EndOfDay(day)
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, invalidParam("date_from", "is after date_to")
	}
	return from, to, nil
}
