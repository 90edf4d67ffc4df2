// ABOUTME: Typed model for upstream flight offers and search requests
// ABOUTME: Centralizes price/itinerary extraction from raw Amadeus JSON

package models

import (
	"sort"
	"strconv"
)

// PriceSentinel sorts offers with a missing or malformed total price after
// every offer with a valid one. Larger than any real fare.
const PriceSentinel = 9e9

// Offer is one priced round-trip itinerary as returned by the upstream
// flight search. Never mutated after decoding, only re-ordered and sliced.
type Offer struct {
	Price       OfferPrice  `json:"price"`
	Itineraries []Itinerary `json:"itineraries"`
}

// OfferPrice carries the upstream total as a string; Amadeus serializes
// monetary amounts as decimal strings.
type OfferPrice struct {
	GrandTotal string `json:"grandTotal"`
	Currency   string `json:"currency"`
}

// Itinerary is one direction of the trip with its flight segments in order.
type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment is a single flight leg.
type Segment struct {
	Departure SegmentPoint `json:"departure"`
	Arrival   SegmentPoint `json:"arrival"`
}

// SegmentPoint identifies one end of a segment by airport code.
type SegmentPoint struct {
	IATACode string `json:"iataCode"`
}

// TotalPrice returns the offer's grand total as a float, or PriceSentinel
// when the price is absent or unparsable.
func (o Offer) TotalPrice() float64 {
	if o.Price.GrandTotal == "" {
		return PriceSentinel
	}
	v, err := strconv.ParseFloat(o.Price.GrandTotal, 64)
	if err != nil {
		return PriceSentinel
	}
	return v
}

// Valid reports whether the offer carries at least one itinerary with
// segments. Offers failing this are dropped at the parse boundary.
func (o Offer) Valid() bool {
	return len(o.Itineraries) > 0 && len(o.Itineraries[0].Segments) > 0
}

// DepartureCode returns the first outbound segment's departure airport.
func (o Offer) DepartureCode() string {
	segs := o.outboundSegments()
	if len(segs) == 0 {
		return ""
	}
	return segs[0].Departure.IATACode
}

// ArrivalCode returns the last outbound segment's arrival airport.
func (o Offer) ArrivalCode() string {
	segs := o.outboundSegments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1].Arrival.IATACode
}

// Stops is the outbound stop count, derived from the segment count.
func (o Offer) Stops() int {
	segs := o.outboundSegments()
	if len(segs) <= 1 {
		return 0
	}
	return len(segs) - 1
}

// Duration returns the outbound itinerary duration string (ISO 8601, e.g.
// "PT27H45M") as reported upstream.
func (o Offer) Duration() string {
	if len(o.Itineraries) == 0 {
		return ""
	}
	return o.Itineraries[0].Duration
}

func (o Offer) outboundSegments() []Segment {
	if len(o.Itineraries) == 0 {
		return nil
	}
	return o.Itineraries[0].Segments
}

// SortByPrice orders offers ascending by total price, in place. Stable so
// equally-priced offers keep their upstream order.
func SortByPrice(offers []Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].TotalPrice() < offers[j].TotalPrice()
	})
}

// SearchRequest is the value object for one round-trip offer search.
// Constructed fresh per query, no shared state.
type SearchRequest struct {
	Origin        string
	Destination   string
	DepartureDate string // ISO calendar date YYYY-MM-DD
	ReturnDate    string
	Currency      string
	Market        string
	Adults        int
	MaxResults    int
}
