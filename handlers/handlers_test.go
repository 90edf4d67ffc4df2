package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/farescout/farescout/config"
	"github.com/farescout/farescout/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Market:         "CL",
		Currency:       "USD",
		Origin:         "SCL",
		TokyoCodes:     []string{"NRT", "HND"},
		OsakaCodes:     []string{"KIX", "ITM"},
		HokkaidoCodes:  []string{"CTS", "HKD"},
		OkinawaCodes:   []string{"OKA"},
		DaysAhead:      60,
		StayNights:     14,
		MaxResults:     5,
		SecondCurrency: "CLP",
		Timezone:       "UTC",
	}
}

// newBackend mocks the Amadeus token and search endpoints with one offer.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/security/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 1800})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{
			map[string]interface{}{
				"price": map[string]interface{}{"grandTotal": "700.00", "currency": "USD"},
				"itineraries": []interface{}{map[string]interface{}{
					"duration": "PT20H",
					"segments": []interface{}{map[string]interface{}{
						"departure": map[string]interface{}{"iataCode": "SCL"},
						"arrival":   map[string]interface{}{"iataCode": "NRT"},
					}},
				}},
			},
		}})
	}))
}

func newTestHandler(t *testing.T, notifier services.Notifier) *Handler {
	t.Helper()
	backend := newBackend(t)
	t.Cleanup(backend.Close)

	cfg := testConfig()
	amadeus := services.NewAmadeusClient(backend.URL, "id", "secret", 100, 5*time.Second)
	fx := services.NewRateCache(12*time.Hour, "945")
	flights := services.NewFlightsService(cfg, amadeus, fx)
	return NewHandler(cfg, flights, notifier)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
	if resp["webhook"] != false {
		t.Errorf("Expected webhook false without notifier, got %v", resp["webhook"])
	}
}

func TestDeals_ReturnsDigestText(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Deals(rec, httptest.NewRequest(http.MethodGet, "/api/deals?group=tokyo", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "700.00 USD") {
		t.Errorf("Expected rendered offer line, got %q", rec.Body.String())
	}
}

func TestDeals_UnknownGroup(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Deals(rec, httptest.NewRequest(http.MethodGet, "/api/deals?group=narnia", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown group, got %d", rec.Code)
	}
}

func TestDeals_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Deals(rec, httptest.NewRequest(http.MethodPost, "/api/deals?group=tokyo", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

type stubNotifier struct {
	sent []string
	err  error
}

func (s *stubNotifier) Send(ctx context.Context, content string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, content)
	return nil
}

func TestPublish_DeliversDigest(t *testing.T) {
	notifier := &stubNotifier{}
	h := newTestHandler(t, notifier)

	rec := httptest.NewRecorder()
	h.Publish(rec, httptest.NewRequest(http.MethodPost, "/api/publish?group=osaka", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("Expected 1 delivery, got %d", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0], "Osaka") {
		t.Errorf("Expected Osaka digest, got %q", notifier.sent[0])
	}
}

func TestPublish_WithoutNotifier(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Publish(rec, httptest.NewRequest(http.MethodPost, "/api/publish?group=tokyo", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without webhook, got %d", rec.Code)
	}
}

func TestPublish_DeliveryFailure(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("webhook down")}
	h := newTestHandler(t, notifier)

	rec := httptest.NewRecorder()
	h.Publish(rec, httptest.NewRequest(http.MethodPost, "/api/publish?group=tokyo", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 on delivery failure, got %d", rec.Code)
	}
}
