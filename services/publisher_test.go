package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Send(ctx context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, content)
	return nil
}

func TestPublisher_PublishDaily(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/security/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "test-token", "expires_in": 1800})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{rawOffer("700", "SCL", "NRT")}})
	}))
	defer backend.Close()

	cfg := testConfig()
	svc := newTestFlightsService(t, cfg, backend.URL, nil)

	notifier := &recordingNotifier{}
	p := NewPublisher(cfg, svc, notifier)

	p.PublishDaily(context.Background())

	if len(notifier.messages) != 2 {
		t.Fatalf("Expected tokyo and osaka digests, got %d messages", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "Tokio") {
		t.Errorf("Expected first digest to be Tokyo's, got %q", notifier.messages[0])
	}
	if !strings.Contains(notifier.messages[1], "Osaka") {
		t.Errorf("Expected second digest to be Osaka's, got %q", notifier.messages[1])
	}
}

func TestPublisher_NextRun(t *testing.T) {
	cfg := testConfig()
	cfg.PublishHour = 11
	p := NewPublisher(cfg, nil, nil)

	morning := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	next := p.NextRun(morning)
	if next.Hour() != 11 || next.Day() != 28 {
		t.Errorf("Expected same-day 11:00, got %v", next)
	}

	afternoon := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	next = p.NextRun(afternoon)
	if next.Hour() != 11 || next.Day() != 29 {
		t.Errorf("Expected next-day 11:00, got %v", next)
	}

	exactly := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)
	next = p.NextRun(exactly)
	if next.Day() != 29 {
		t.Errorf("Expected strictly-after semantics at the boundary, got %v", next)
	}
}
