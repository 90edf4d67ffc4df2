// ABOUTME: Departure/return date resolution for fare searches
// ABOUTME: Prefers fixed configured dates, falls back to a relative offset

package services

import (
	"log/slog"
	"time"

	"github.com/farescout/farescout/models"
)

const isoDate = "2006-01-02"

// ParseFixedDates validates an explicit departure/return pair. Both must be
// ISO calendar dates and the departure must be strictly before the return.
func ParseFixedDates(depart, ret string) (string, string, error) {
	d1, err := time.Parse(isoDate, depart)
	if err != nil {
		return "", "", &models.InvalidDateRangeError{Departure: depart, Return: ret, Reason: "unparsable departure date"}
	}
	d2, err := time.Parse(isoDate, ret)
	if err != nil {
		return "", "", &models.InvalidDateRangeError{Departure: depart, Return: ret, Reason: "unparsable return date"}
	}
	if !d1.Before(d2) {
		return "", "", &models.InvalidDateRangeError{Departure: depart, Return: ret, Reason: "return must be after departure"}
	}
	return d1.Format(isoDate), d2.Format(isoDate), nil
}

// ComputeDates derives a date pair from a relative offset: departure is
// daysAhead from now in the given location, return is stayNights later.
func ComputeDates(now time.Time, daysAhead, stayNights int, loc *time.Location) (string, string) {
	depart := now.In(loc).AddDate(0, 0, daysAhead)
	ret := depart.AddDate(0, 0, stayNights)
	return depart.Format(isoDate), ret.Format(isoDate)
}

// ResolveDates picks the date pair for a search. A configured fixed pair is
// used when both values are present and valid; anything wrong with it is
// logged and discarded in favor of the relative-offset computation.
func ResolveDates(depart, ret string, daysAhead, stayNights int, loc *time.Location) (string, string) {
	if depart != "" && ret != "" {
		d, r, err := ParseFixedDates(depart, ret)
		if err == nil {
			return d, r
		}
		slog.Warn("Ignoring fixed dates", "depart", depart, "return", ret, "error", err)
	}
	return ComputeDates(time.Now(), daysAhead, stayNights, loc)
}
