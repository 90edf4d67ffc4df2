// ABOUTME: Pure rendering of ranked offer lists into channel-ready text
// ABOUTME: Formats prices, secondary-currency equivalents, and deep links

package services

import (
	"fmt"
	"strings"

	"github.com/leekchan/accounting"

	"github.com/farescout/farescout/models"
)

// clpFormatter renders CLP amounts the local way: integer pesos with dots
// as thousands separators.
var clpFormatter = accounting.Accounting{Precision: 0, Thousand: "."}

// genericFormatter renders any other amount with two decimals.
var genericFormatter = accounting.Accounting{Precision: 2, Thousand: ",", Decimal: "."}

// DealLink builds a deterministic Kayak round-trip deep link sorted by
// price ascending. Returns "" when either airport code is unusable.
func DealLink(origin, dest, departDate, returnDate string) string {
	o := strings.ToUpper(origin)
	d := strings.ToUpper(dest)
	if o == "" || d == "" || o == "?" || d == "?" {
		return ""
	}
	return fmt.Sprintf("https://www.kayak.com/flights/%s-%s/%s/%s?sort=price_a", o, d, departDate, returnDate)
}

// BuildMessage renders a ranked offer list into the digest text. offers is
// assumed already sorted and truncated. rate is the secondary-currency rate
// for the whole list, nil when unavailable.
func BuildMessage(title string, offers []models.Offer, origin string, dests []string,
	departDate, returnDate, primaryCurrency, secondCurrency string, rate *float64) string {

	if len(offers) == 0 {
		return fmt.Sprintf("**%s**\n_No se encontraron ofertas para %s→%s (%s / %s)._",
			title, origin, strings.Join(dests, ","), departDate, returnDate)
	}

	lines := make([]string, 0, len(offers)+1)
	lines = append(lines, fmt.Sprintf("**%s** _(salida %s, regreso %s)_", title, departDate, returnDate))
	for _, offer := range offers {
		lines = append(lines, formatOffer(offer, primaryCurrency, secondCurrency, rate, departDate, returnDate))
	}
	return strings.Join(lines, "\n")
}

// formatOffer renders one offer line:
// departure/arrival, stops, duration, primary price, optional secondary
// equivalent, optional deep link.
func formatOffer(offer models.Offer, primaryCurrency, secondCurrency string, rate *float64,
	departDate, returnDate string) string {

	amount := offer.TotalPrice()
	if amount == models.PriceSentinel {
		amount = 0
	}
	currency := strings.ToUpper(offer.Price.Currency)
	if currency == "" {
		currency = primaryCurrency
	}

	dep := offer.DepartureCode()
	arr := offer.ArrivalCode()
	if dep == "" {
		dep = "?"
	}
	if arr == "" {
		arr = "?"
	}

	line := fmt.Sprintf("• %s→%s | %d escala(s) | %s | %s %s",
		dep, arr, offer.Stops(), offer.Duration(),
		genericFormatter.FormatMoneyFloat64(amount), currency)

	if secondCurrency != "" && rate != nil && amount > 0 {
		line += " (≈ " + formatSecondary(amount * *rate, secondCurrency) + ")"
	}

	if url := DealLink(dep, arr, departDate, returnDate); url != "" {
		// Angle brackets keep the link clickable without an unfurl.
		line += " | 🔗 <" + url + ">"
	}
	return line
}

// formatSecondary renders an amount in the secondary currency. CLP gets the
// special-cased integer grouping; everything else is generic two-decimal.
func formatSecondary(amount float64, currency string) string {
	currency = strings.ToUpper(currency)
	if currency == "CLP" {
		return clpFormatter.FormatMoneyFloat64(amount) + " CLP"
	}
	return genericFormatter.FormatMoneyFloat64(amount) + " " + currency
}
