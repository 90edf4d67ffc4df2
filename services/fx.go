// ABOUTME: Exchange-rate lookup with TTL cache, manual override, and
// ABOUTME: ordered remote provider fallback (dinero.today, exchangerate.host)

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/farescout/farescout/cache"
	"github.com/farescout/farescout/models"
)

const (
	dineroTodayURL      = "https://cdn.dinero.today/api/latest.json"
	exchangerateHostURL = "https://api.exchangerate.host/latest"
)

// RateCache resolves (base, target) currency pairs to positive rates.
// Cached entries are reused until their TTL lapses; staleness is detected
// lazily at lookup. A manual USD->CLP override takes priority over remote
// providers. Concurrent lookups for the same pair are collapsed so a TTL
// expiry race cannot issue redundant remote calls.
type RateCache struct {
	cache          *cache.Cache
	client         *http.Client
	ttl            time.Duration
	usdclpOverride string
	group          singleflight.Group

	// provider endpoints, overridable in tests
	dineroURL   string
	exchangeURL string
}

// NewRateCache creates a rate cache with the given TTL. override is the raw
// FX_USDCLP value, empty when unset.
func NewRateCache(ttl time.Duration, override string) *RateCache {
	return &RateCache{
		cache:          cache.New(ttl),
		ttl:            ttl,
		usdclpOverride: override,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		dineroURL:   dineroTodayURL,
		exchangeURL: exchangerateHostURL,
	}
}

// GetRate returns the rate converting one unit of base into target.
// Fails with models.ErrRateUnavailable when no provider can produce one.
func (rc *RateCache) GetRate(ctx context.Context, base, target string) (float64, error) {
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)
	if base == target {
		return 1.0, nil
	}

	key := "fx:" + base + ":" + target
	if cached, found := rc.cache.Get(key); found {
		return cached.(float64), nil
	}

	val, err, _ := rc.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have already filled the entry.
		if cached, found := rc.cache.Get(key); found {
			return cached.(float64), nil
		}
		rate, err := rc.resolve(ctx, base, target)
		if err != nil {
			return 0.0, err
		}
		rc.cache.SetWithTTL(key, rate, rc.ttl)
		return rate, nil
	})
	if err != nil {
		return 0, err
	}
	return val.(float64), nil
}

// resolve applies the override, then tries remote providers in priority
// order. Provider failure is non-fatal; it only advances the chain.
func (rc *RateCache) resolve(ctx context.Context, base, target string) (float64, error) {
	if rc.usdclpOverride != "" && base == "USD" && target == "CLP" {
		if rate, err := strconv.ParseFloat(rc.usdclpOverride, 64); err == nil && rate > 0 {
			slog.Debug("Using manual USD->CLP override", "rate", rate)
			return rate, nil
		}
		// Invalid overrides are ignored, falling through to remote lookup.
		slog.Warn("Ignoring non-numeric FX_USDCLP override", "value", rc.usdclpOverride)
	}

	if rate, err := rc.fromDineroTable(ctx, base, target); err != nil {
		slog.Warn("FX provider dinero.today failed", "base", base, "target", target, "error", err)
	} else if rate > 0 {
		return rate, nil
	}

	if rate, err := rc.fromExchangerateHost(ctx, base, target); err != nil {
		slog.Warn("FX provider exchangerate.host failed", "base", base, "target", target, "error", err)
	} else if rate > 0 {
		return rate, nil
	}

	return 0, fmt.Errorf("%w for %s->%s", models.ErrRateUnavailable, base, target)
}

// fromDineroTable reads dinero.today's single USD-based rate table:
// rate(USD->X) = rates[X], rate(X->USD) = 1/rates[X],
// rate(A->B) = rates[B] / rates[A].
func (rc *RateCache) fromDineroTable(ctx context.Context, base, target string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rc.dineroURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var table struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return 0, err
	}

	if base == "USD" {
		return table.Rates[target], nil
	}
	if target == "USD" {
		if v := table.Rates[base]; v > 0 {
			return 1.0 / v, nil
		}
		return 0, nil
	}
	baseRate, targetRate := table.Rates[base], table.Rates[target]
	if baseRate > 0 && targetRate > 0 {
		return targetRate / baseRate, nil
	}
	return 0, nil
}

// fromExchangerateHost queries exchangerate.host for a single pair.
func (rc *RateCache) fromExchangerateHost(ctx context.Context, base, target string) (float64, error) {
	u := fmt.Sprintf("%s?base=%s&symbols=%s", rc.exchangeURL, base, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.Rates[target], nil
}
