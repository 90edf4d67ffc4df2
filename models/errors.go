// ABOUTME: Error taxonomy for the offer-acquisition pipeline
// ABOUTME: Upstream auth/search failures, FX unavailability, invalid dates

package models

import (
	"errors"
	"fmt"
)

// ErrRateUnavailable signals that no exchange rate could be produced from
// the override or any remote provider. Callers treat this as "no secondary
// currency annotation", never as a fatal pipeline error.
var ErrRateUnavailable = errors.New("no exchange rate available")

// maxErrorBody bounds how much of an upstream response body is kept on an
// error, matching what is safe to log.
const maxErrorBody = 300

// TruncateBody trims an upstream response body for inclusion in errors.
func TruncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}

// UpstreamAuthError is a failed token exchange against the flight API.
type UpstreamAuthError struct {
	Status int
	Body   string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("upstream token request failed (status %d): %s", e.Status, e.Body)
}

// UpstreamSearchError is a non-success response from the offer search.
type UpstreamSearchError struct {
	Status int
	Body   string
}

func (e *UpstreamSearchError) Error() string {
	return fmt.Sprintf("upstream search failed (status %d): %s", e.Status, e.Body)
}

// InvalidDateRangeError reports a departure/return pair that is unparsable
// or not strictly increasing.
type InvalidDateRangeError struct {
	Departure string
	Return    string
	Reason    string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s/%s: %s", e.Departure, e.Return, e.Reason)
}
