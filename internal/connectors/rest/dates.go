package rest

import "time"

// DateTimeLayout is the UTC timestamp format used for date query params.
const DateTimeLayout = "2006-01-02T15:04:05Z"

// DayLayout formats calendar dates.
const DayLayout = "2006-01-02"

// BuildDateParams returns from_date and to_date query params covering the
// whole days of [start, end]. from_date is the start of the first day and
// to_date the start of the day after end. Nil bounds are omitted.
func BuildDateParams(start, end *time.Time) map[string]string {
	params := make(map[string]string, 2)
	if start != nil {
		params["from_date"] = StartOfDay(*start).Format(DateTimeLayout)
	}
	if end != nil {
		params["to_date"] = StartOfDay(*end).AddDate(0, 0, 1).Format(DateTimeLayout)
	}
	return params
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
