package trip

import (
	"time"

	"github.com/tourmates/backend/internal/models"
)

// DefaultTimezone is the canonical zone trip days are compared in. Status is
// a day-level property: pinning one zone keeps a trip's derived status the
// same no matter where the server or the caller happens to be.
const DefaultTimezone = "Asia/Kolkata"

// Clock supplies the current instant. Injected so tests can freeze time.
type Clock func() time.Time

// startOfDay truncates an instant to midnight of its calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// ResolveStatus derives a trip's lifecycle status from its date range and
// the given instant. All three instants are normalized to the start of their
// calendar day in loc before comparison, so both boundary days count as
// in_journey. Pure function, no side effects.
func ResolveStatus(dates models.DateRange, now time.Time, loc *time.Location) models.Status {
	today := startOfDay(now, loc)
	start := startOfDay(dates.Start, loc)
	end := startOfDay(dates.End, loc)

	switch {
	case today.Before(start):
		return models.StatusNotStarted
	case today.After(end):
		return models.StatusEnded
	default:
		return models.StatusInJourney
	}
}
