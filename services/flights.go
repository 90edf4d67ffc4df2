// ABOUTME: Aggregation engine fanning out searches over origin/destination
// ABOUTME: pairs, merging, ranking, and rendering the resulting offers

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farescout/farescout/config"
	"github.com/farescout/farescout/models"
)

// FlightsService owns the upstream client and the rate cache and produces
// rendered deal digests. One instance lives for the whole process.
type FlightsService struct {
	cfg     *config.Config
	amadeus *AmadeusClient
	fx      *RateCache
}

func NewFlightsService(cfg *config.Config, amadeus *AmadeusClient, fx *RateCache) *FlightsService {
	return &FlightsService{cfg: cfg, amadeus: amadeus, fx: fx}
}

// DealGroup is a named set of origin/destination codes with its own title.
// Domestic groups carry a fixed date pair instead of the relative window.
type DealGroup struct {
	Name      string
	Title     string
	Origins   []string
	Dests     []string
	FixedDate bool   // use the group's own date pair, never the offset window
	Depart    string // only when FixedDate
	Return    string
}

// DealGroups returns the configured destination groups. Tokyo and Osaka run
// from the configured origin on the standard window; the Japan-domestic
// groups run between the Tokyo airports and their destinations on the
// JP_DOMESTIC date pair.
func DealGroups(cfg *config.Config) []DealGroup {
	return []DealGroup{
		{
			Name:    "tokyo",
			Title:   fmt.Sprintf("✈️ %s ⇄ Tokio (%s) | Ofertas más baratas", cfg.Origin, strings.Join(cfg.TokyoCodes, "/")),
			Origins: []string{cfg.Origin},
			Dests:   cfg.TokyoCodes,
		},
		{
			Name:    "osaka",
			Title:   fmt.Sprintf("✈️ %s ⇄ Osaka (%s) | Ofertas más baratas", cfg.Origin, strings.Join(cfg.OsakaCodes, "/")),
			Origins: []string{cfg.Origin},
			Dests:   cfg.OsakaCodes,
		},
		{
			Name:      "hokkaido",
			Title:     fmt.Sprintf("✈️ Tokio ⇄ Hokkaido (%s) | Ofertas más baratas", strings.Join(cfg.HokkaidoCodes, "/")),
			Origins:   cfg.TokyoCodes,
			Dests:     cfg.HokkaidoCodes,
			FixedDate: true,
			Depart:    cfg.JPDomDepartDate,
			Return:    cfg.JPDomReturnDate,
		},
		{
			Name:      "okinawa",
			Title:     fmt.Sprintf("✈️ Tokio ⇄ Okinawa (%s) | Ofertas más baratas", strings.Join(cfg.OkinawaCodes, "/")),
			Origins:   cfg.TokyoCodes,
			Dests:     cfg.OkinawaCodes,
			FixedDate: true,
			Depart:    cfg.JPDomDepartDate,
			Return:    cfg.JPDomReturnDate,
		},
	}
}

// GroupByName looks up a configured deal group.
func GroupByName(cfg *config.Config, name string) (DealGroup, bool) {
	for _, g := range DealGroups(cfg) {
		if g.Name == strings.ToLower(name) {
			return g, true
		}
	}
	return DealGroup{}, false
}

// GroupDeals resolves the group's date pair and aggregates its offers into
// a rendered message.
func (s *FlightsService) GroupDeals(ctx context.Context, group DealGroup) (string, error) {
	var depart, ret string
	if group.FixedDate {
		if group.Depart == "" || group.Return == "" {
			return "", fmt.Errorf("group %s needs JP_DOMESTIC_DEPART_DATE and JP_DOMESTIC_RETURN_DATE", group.Name)
		}
		var err error
		depart, ret, err = ParseFixedDates(group.Depart, group.Return)
		if err != nil {
			return "", err
		}
	} else {
		depart, ret = ResolveDates(s.cfg.DepartDate, s.cfg.ReturnDate,
			s.cfg.DaysAhead, s.cfg.StayNights, s.cfg.Location())
	}
	return s.Aggregate(ctx, group.Title, group.Origins, group.Dests, depart, ret), nil
}

// Aggregate queries every (origin, destination) pair sequentially, merges
// the surviving offers, re-ranks them globally by total price, truncates to
// the configured cap, and renders the digest. Per-pair failures are logged
// and skipped; an all-failed batch renders the fixed no-offers message.
func (s *FlightsService) Aggregate(ctx context.Context, title string, origins, dests []string, departDate, returnDate string) string {
	runID := uuid.NewString()
	start := time.Now()
	slog.Info("Aggregation started",
		"run_id", runID, "origins", origins, "destinations", dests,
		"depart", departDate, "return", returnDate)

	var merged []models.Offer
	var rate *float64

	for _, origin := range origins {
		for _, dest := range dests {
			offers, err := s.amadeus.SearchRoundTrip(ctx, models.SearchRequest{
				Origin:        origin,
				Destination:   dest,
				DepartureDate: departDate,
				ReturnDate:    returnDate,
				Currency:      s.cfg.Currency,
				Market:        s.cfg.Market,
				Adults:        1,
				MaxResults:    s.cfg.MaxResults,
			})
			if err != nil {
				slog.Warn("Destination search failed",
					"run_id", runID, "origin", origin, "destination", dest, "error", err)
				continue
			}
			merged = append(merged, offers...)

			// The first successful non-empty result fixes the display
			// rate for the whole aggregate.
			if rate == nil && len(offers) > 0 && s.cfg.SecondCurrency != "" {
				offerCurrency := offers[0].Price.Currency
				if offerCurrency == "" {
					offerCurrency = s.cfg.Currency
				}
				r, err := s.fx.GetRate(ctx, offerCurrency, s.cfg.SecondCurrency)
				if err != nil {
					slog.Warn("No secondary-currency rate",
						"run_id", runID, "base", offerCurrency, "target", s.cfg.SecondCurrency, "error", err)
				} else {
					rate = &r
				}
			}
		}
	}

	models.SortByPrice(merged)
	if len(merged) > s.cfg.MaxResults {
		merged = merged[:s.cfg.MaxResults]
	}

	slog.Info("Aggregation completed",
		"run_id", runID, "offers", len(merged), "rate_resolved", rate != nil,
		"elapsed_ms", time.Since(start).Milliseconds())

	originLabel := strings.Join(origins, "/")
	return BuildMessage(title, merged, originLabel, dests, departDate, returnDate,
		s.cfg.Currency, s.cfg.SecondCurrency, rate)
}
