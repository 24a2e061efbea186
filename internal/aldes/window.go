package aldes

import (
	"fmt"
	"time"
)

// A vacation window travels as a single changeMode parameter: a "W", the start
// and end timestamps in windowStampLayout (UTC), each followed by a "Z".
// Clearing the window sends the zero time for both bounds. Frost protection
// uses the same shape, with an all-zeroes end that no timestamp can produce.
const (
	windowStampLayout  = "20060102150405"
	frostProtectionEnd = "00000000000000"

	windowLength = 31
)

func vacationCommand(start, end time.Time) string {
	return "W" + start.UTC().Format(windowStampLayout) + "Z" + end.UTC().Format(windowStampLayout) + "Z"
}

func frostProtectionCommand(now time.Time) string {
	return "W" + now.UTC().Format(windowStampLayout) + "Z" + frostProtectionEnd + "Z"
}

func parseVacationCommand(s string) (start, end time.Time, err error) {
	if len(s) != windowLength || s[0] != 'W' || s[15] != 'Z' || s[30] != 'Z' {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid vacation window %q", s)
	}
	if start, err = time.ParseInLocation(windowStampLayout, s[1:15], time.UTC); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid vacation window start: %w", err)
	}
	if s[16:30] == frostProtectionEnd {
		return start, time.Time{}, nil
	}
	if end, err = time.ParseInLocation(windowStampLayout, s[16:30], time.UTC); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid vacation window end: %w", err)
	}
	return start, end, nil
}
