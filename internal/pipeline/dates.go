package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel serial day numbers accepted as dates: 1900-01-01 .. 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts ISO (YYYY-MM-DD, YYYY/MM/DD), locale (DD-MM-YYYY,
// DD/MM/YYYY), timestamps and Excel serial day numbers. The result is the
// calendar date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			t = t.In(loc)
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}

	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var y, m, d string
	if len(parts[0]) == 4 {
		y, m, d = parts[0], parts[1], parts[2]
	} else {
		d, m, y = parts[0], parts[1], parts[2]
	}
	if len(y) != 4 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31-02 into March; reject instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// DeriveStatus classifies a policy by its end date relative to today.
func DeriveStatus(endDate string, now time.Time, loc *time.Location) Status {
	end, ok := ParseDate(endDate, loc)
	if !ok {
		return StatusUnknown
	}
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	if end.Before(today) {
		return StatusExpired
	}
	return StatusActive
}
