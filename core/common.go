package core

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the format for all dates exchanged with outer layers.
const DateLayout = "2006-01-02"

// CopyID identifies a physical copy of a book.
type CopyID = uuid.UUID

// ReaderID identifies a reader.
type ReaderID = uuid.UUID

// OccurredAt represents when something happened in the domain.
type OccurredAt = time.Time

// ToOccurredAt converts a time to OccurredAt with UTC normalization and microsecond precision.
func ToOccurredAt(t time.Time) OccurredAt {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatDate renders the UTC calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// calendarDate drops the time-of-day component of t in UTC.
func calendarDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
