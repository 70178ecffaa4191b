package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/models"
)

const sampleDoc = `{
  "updated": 1474454414372,
  "R245": {"MN4P2B/A": "NONE", "MN4M2B/A": "ALL", "timeSlot": {"en_GB": "9am"}},
  "R369": {"MN912VC/A": "ALL", "MN972VC/A": "UNLOCKED"},
  "R999": {"MN4P2B/A": "ALL"}
}`

func testWatch(endpoint string) config.Watch {
	return config.Watch{
		Country:   "UK",
		Stores:    []string{"R245", "R092", "R369"},
		Products:  []string{"MN4P2B/A", "MN912VC/A", "MN972VC/A"},
		Transport: "http",
		Endpoint:  endpoint,
	}
}

func TestFetchFiltersToConfiguredIDs(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	f := New(testWatch(srv.URL+"/{market}/{locale}/availability.json"), HTTPGetter{Client: srv.Client()})
	snap, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotPath != "/GB/en_GB/availability.json" {
		t.Errorf("unexpected request path %q", gotPath)
	}

	want := models.Snapshot{
		"R245": {"MN4P2B/A": models.Unavailable},
		"R092": {},
		"R369": {"MN912VC/A": models.Available("ALL"), "MN972VC/A": models.Available("UNLOCKED")},
	}
	if !snap.Equal(want) {
		t.Errorf("expected %v, got %v", want, snap)
	}
	if _, ok := snap["R999"]; ok {
		t.Error("unconfigured store R999 leaked into snapshot")
	}
	if _, ok := snap["R245"]["MN4M2B/A"]; ok {
		t.Error("unconfigured product MN4M2B/A leaked into snapshot")
	}
}

func TestFetchUpstreamErrors(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) }},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>not json")) }},
	}

	for _, tc := range testCases {
		srv := httptest.NewServer(tc.handler)
		f := New(testWatch(srv.URL+"/{market}"), HTTPGetter{Client: srv.Client()})
		_, err := f.Fetch(context.Background())
		srv.Close()

		if !errx.Is(err, errx.KindUpstream) {
			t.Errorf("%s: expected upstream error, got %v", tc.name, err)
		}
	}
}

func TestFetchUnknownCountry(t *testing.T) {
	w := testWatch("")
	w.Country = "ZZ"
	_, err := New(w, HTTPGetter{}).Fetch(context.Background())
	if !errx.Is(err, errx.KindConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestFilterEmptyDocument(t *testing.T) {
	snap := Filter(map[string]json.RawMessage{}, []models.StoreID{"R1", "R2"}, []models.ProductID{"P1"})
	if len(snap) != 2 {
		t.Fatalf("expected both stores present, got %v", snap)
	}
	for store, products := range snap {
		if len(products) != 0 {
			t.Errorf("store %s: expected empty mapping, got %v", store, products)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	const rendered = `<html><head></head><body><pre style="word-wrap: break-word;">{"R245": {"MN4P2B/A": "ALL"}}</pre></body></html>`

	body, err := ExtractJSON(rendered)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if string(body) != `{"R245": {"MN4P2B/A": "ALL"}}` {
		t.Errorf("unexpected body %q", body)
	}

	if _, err := ExtractJSON(`<html><body><h1>Access Denied</h1></body></html>`); err == nil {
		t.Error("expected error for page without JSON")
	}
}

func TestNewGetter(t *testing.T) {
	w := testWatch("")
	if _, ok := NewGetter(w).(HTTPGetter); !ok {
		t.Errorf("expected HTTPGetter for http transport, got %T", NewGetter(w))
	}

	w.Transport = "browser"
	w.BrowserTimeout = 45 * time.Second
	g, ok := NewGetter(w).(BrowserGetter)
	if !ok {
		t.Fatalf("expected BrowserGetter for browser transport, got %T", NewGetter(w))
	}
	if g.Timeout != 45*time.Second {
		t.Errorf("expected configured timeout 45s, got %s", g.Timeout)
	}
}
