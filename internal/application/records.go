package application

import (
	"strings"
	"time"
)

const (
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04:05"
	shortTimeLayout   = "15:04"
	defaultEventSpan  = time.Hour
	allDayDefaultSpan = 1
)

// ValidateRecords checks an extraction result before any calendar call is made.
// Zero records yield ErrNoEvents; the first invalid record yields a
// *RecordValidationError and the whole batch is rejected.
func ValidateRecords(records []EventRecord) error {
	if len(records) == 0 {
		return ErrNoEvents
	}
	for i, record := range records {
		if err := validateRecord(i, record); err != nil {
			return err
		}
	}
	return nil
}

func validateRecord(index int, record EventRecord) error {
	if strings.TrimSpace(record.Summary) == "" {
		return &RecordValidationError{Index: index, Field: "summary", Reason: "is required"}
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(record.StartDate)); err != nil {
		return &RecordValidationError{Index: index, Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}
	if end := strings.TrimSpace(record.EndDate); end != "" {
		if _, err := time.Parse(dateLayout, end); err != nil {
			return &RecordValidationError{Index: index, Field: "end_date", Reason: "must be YYYY-MM-DD"}
		}
	}
	if start := strings.TrimSpace(record.StartTime); start != "" {
		if _, err := parseClock(start); err != nil {
			return &RecordValidationError{Index: index, Field: "start_time", Reason: "must be HH:MM or HH:MM:SS"}
		}
	}
	if end := strings.TrimSpace(record.EndTime); end != "" {
		if _, err := parseClock(end); err != nil {
			return &RecordValidationError{Index: index, Field: "end_time", Reason: "must be HH:MM or HH:MM:SS"}
		}
	}
	return nil
}

// CompleteEventWindow fills in the end of a record and normalizes its times to
// HH:MM:SS.
//
// A timed event without an end time ends one hour after it starts, moving to
// the next day when that crosses midnight. A timed event with an end time but no
// end date ends on its start date. An all-day event without an end date, or
// whose end date equals its start date, ends on the following day.
func CompleteEventWindow(record EventRecord) (EventRecord, error) {
	if err := validateRecord(0, record); err != nil {
		return EventRecord{}, err
	}

	out := record
	out.Summary = strings.TrimSpace(record.Summary)
	out.StartDate = strings.TrimSpace(record.StartDate)
	out.StartTime = strings.TrimSpace(record.StartTime)
	out.EndDate = strings.TrimSpace(record.EndDate)
	out.EndTime = strings.TrimSpace(record.EndTime)

	startDay, _ := time.Parse(dateLayout, out.StartDate)

	if out.AllDay() {
		out.EndTime = ""
		if out.EndDate == "" || out.EndDate == out.StartDate {
			out.EndDate = startDay.AddDate(0, 0, allDayDefaultSpan).Format(dateLayout)
		}
		return out, nil
	}

	startClock, _ := parseClock(out.StartTime)
	start := startDay.Add(startClock)
	out.StartTime = start.Format(timeLayout)

	if out.EndTime == "" {
		end := start.Add(defaultEventSpan)
		out.EndDate = end.Format(dateLayout)
		out.EndTime = end.Format(timeLayout)
		return out, nil
	}

	endClock, _ := parseClock(out.EndTime)
	if out.EndDate == "" {
		out.EndDate = out.StartDate
	}
	endDay, _ := time.Parse(dateLayout, out.EndDate)
	out.EndTime = endDay.Add(endClock).Format(timeLayout)
	return out, nil
}

// parseClock returns the offset from midnight for HH:MM or HH:MM:SS.
func parseClock(value string) (time.Duration, error) {
	layout := timeLayout
	if strings.Count(value, ":") == 1 {
		layout = shortTimeLayout
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// DisplayWhen renders the start of a record for replies, using 終日 for
// all-day events.
func DisplayWhen(record EventRecord) string {
	if record.AllDay() {
		return record.StartDate + " 終日"
	}
	return record.StartDate + " " + record.StartTime
}
