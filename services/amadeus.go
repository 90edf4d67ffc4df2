// ABOUTME: Amadeus flight-offers API client with OAuth2 token lifecycle
// ABOUTME: Performs round-trip searches sorted ascending by total price

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"
	"golang.org/x/time/rate"

	"github.com/farescout/farescout/models"
)

// tokenSafetyMargin is subtracted from the reported token lifetime so a
// refresh happens before the token actually becomes invalid.
const tokenSafetyMargin = 60 * time.Second

type AmadeusClient struct {
	host         string
	clientID     string
	clientSecret string
	client       *http.Client
	limiter      *rate.Limiter
	token        string
	tokenExpiry  time.Time
	tokenMutex   sync.RWMutex
}

// NewAmadeusClient creates a client for the given API host. The token is
// requested lazily on first search and refreshed near expiry. searchesPerSec
// caps the upstream request rate; timeout bounds each HTTP call.
func NewAmadeusClient(host, clientID, clientSecret string, searchesPerSec int, timeout time.Duration) *AmadeusClient {
	transport := &http.Transport{
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// Outbound calls can be tunneled through an SSH+SOCKS5 jump host,
	// the same convention the BOSH tooling uses for restricted networks.
	if allProxy := os.Getenv("ALL_PROXY"); allProxy != "" {
		if dialContext := socks5DialContextFunc(allProxy); dialContext != nil {
			transport.DialContext = dialContext
		}
	}

	if searchesPerSec < 1 {
		searchesPerSec = 1
	}

	return &AmadeusClient{
		host:         strings.TrimRight(host, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      rate.NewLimiter(rate.Limit(searchesPerSec), 1),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (a *AmadeusClient) SetHTTPClient(client *http.Client) {
	a.client = client
}

// ensureToken guarantees a valid bearer token, performing a
// client-credentials exchange when none is held or expiry is near.
func (a *AmadeusClient) ensureToken(ctx context.Context) error {
	a.tokenMutex.RLock()
	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		a.tokenMutex.RUnlock()
		return nil
	}
	a.tokenMutex.RUnlock()

	a.tokenMutex.Lock()
	defer a.tokenMutex.Unlock()

	// Double-check after acquiring write lock
	if a.token != "" && time.Now().Before(a.tokenExpiry) {
		return nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.host+"/v1/security/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &models.UpstreamAuthError{Status: resp.StatusCode, Body: models.TruncateBody(body)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 1800
	}

	a.token = tokenResp.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin)
	slog.Debug("Amadeus token refreshed", "expires_in", expiresIn)

	return nil
}

// SearchRoundTrip runs one round-trip offer search. The result is sorted
// ascending by total price (malformed prices sort last) and truncated to
// req.MaxResults. Offers without itinerary segments are dropped.
func (a *AmadeusClient) SearchRoundTrip(ctx context.Context, req models.SearchRequest) ([]models.Offer, error) {
	if _, _, err := ParseFixedDates(req.DepartureDate, req.ReturnDate); err != nil {
		return nil, err
	}
	if req.MaxResults < 1 {
		return nil, fmt.Errorf("max results must be at least 1, got %d", req.MaxResults)
	}

	if err := a.ensureToken(ctx); err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	adults := req.Adults
	if adults < 1 {
		adults = 1
	}

	params := url.Values{}
	params.Set("originLocationCode", req.Origin)
	params.Set("destinationLocationCode", req.Destination)
	params.Set("departureDate", req.DepartureDate)
	params.Set("returnDate", req.ReturnDate)
	params.Set("adults", strconv.Itoa(adults))
	params.Set("currencyCode", req.Currency)
	params.Set("max", strconv.Itoa(req.MaxResults))
	params.Set("nonStop", "false")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.host+"/v2/shopping/flight-offers?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	a.tokenMutex.RLock()
	httpReq.Header.Set("Authorization", "Bearer "+a.token)
	a.tokenMutex.RUnlock()

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &models.UpstreamSearchError{Status: resp.StatusCode, Body: models.TruncateBody(body)}
	}

	var searchResp struct {
		Data []models.Offer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	offers := make([]models.Offer, 0, len(searchResp.Data))
	for _, offer := range searchResp.Data {
		if !offer.Valid() {
			slog.Debug("Dropping malformed offer", "origin", req.Origin, "destination", req.Destination)
			continue
		}
		offers = append(offers, offer)
	}

	models.SortByPrice(offers)
	if len(offers) > req.MaxResults {
		offers = offers[:req.MaxResults]
	}
	return offers, nil
}

// socks5DialContextFunc creates a dial function for SSH+SOCKS5 proxy connections.
// Supports format: ssh+socks5://user@host:port?private-key=/path/to/key
func socks5DialContextFunc(allProxy string) func(ctx context.Context, network, address string) (net.Conn, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		slog.Error("Failed to parse ALL_PROXY URL", "error", err)
		return nil
	}

	queryMap, err := url.ParseQuery(proxyURL.RawQuery)
	if err != nil {
		slog.Error("Failed to parse ALL_PROXY query params", "error", err)
		return nil
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	keyPath := queryMap.Get("private-key")
	if keyPath == "" {
		slog.Error("ALL_PROXY missing required 'private-key' query param")
		return nil
	}

	sshKey, err := os.ReadFile(keyPath)
	if err != nil {
		slog.Error("Failed to read SSH private key", "path", keyPath, "error", err)
		return nil
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(username, string(sshKey), proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}
}
