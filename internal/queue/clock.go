package queue

import "time"

// NoDeadline is the days-remaining sentinel for absent or unreadable
// deadlines: far enough out to sink to the bottom of any queue.
const NoDeadline = 999

// DateLayout is the canonical day.month.year form deadlines are stored in.
const DateLayout = "02.01.2006"

// dateParseLayout additionally tolerates unpadded day and month on input.
const dateParseLayout = "2.1.2006"

// DaysRemaining converts a deadline string into whole days left relative to
// ref. Malformed or empty input yields NoDeadline, past dates clamp to 0.
// It never fails: scoring must produce a total order even over garbage.
func DaysRemaining(deadline string, ref time.Time) int {
	days, ok := deadlineDays(deadline, ref)
	if !ok {
		return NoDeadline
	}
	if days < 0 {
		return 0
	}
	return days
}

// deadlineDays returns the literal signed day difference, negative when the
// deadline has passed. ok is false for empty or unparseable input.
func deadlineDays(deadline string, ref time.Time) (int, bool) {
	if deadline == "" {
		return 0, false
	}
	due, err := time.Parse(dateParseLayout, deadline)
	if err != nil {
		return 0, false
	}
	return daysBetween(ref, due), true
}

// daysBetween compares calendar days, not instants, so the result does not
// drift with the time of day of ref.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
