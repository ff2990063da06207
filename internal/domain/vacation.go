package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format of vacation dates (HTML date input value).
const DateLayout = "2006-01-02"

// ErrInvalidDates is returned when a date range is missing a bound,
// cannot be parsed or ends before it starts.
var ErrInvalidDates = errors.New("invalid date range")

// Vacation is a single saved date range.
//
// Vacations have no explicit id: their identity is their position
// in the sorted collection.
type Vacation struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ValidateDates checks a submitted range. Both bounds are required and
// start must not be after end. Equal dates are a valid one-day vacation.
func ValidateDates(startDate, endDate string) error {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return ErrInvalidDates
	}

	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return ErrInvalidDates
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return ErrInvalidDates
	}
	if start.After(end) {
		return ErrInvalidDates
	}
	return nil
}

// SortVacations orders vacations newest first by start date.
// Entries with an unparsable start date sink to the end.
func SortVacations(vacations []Vacation) {
	sort.SliceStable(vacations, func(i, j int) bool {
		a, errA := time.Parse(DateLayout, vacations[i].StartDate)
		b, errB := time.Parse(DateLayout, vacations[j].StartDate)
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		}
		return a.After(b)
	})
}
