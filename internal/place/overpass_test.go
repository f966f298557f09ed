package place

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOverpassNearbyParsesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("data") == "" {
			t.Errorf("missing overpass query: %v", err)
		}
		w.Write([]byte(`{"elements":[
			{"type":"node","id":42,"lat":52.52,"lon":13.41,"tags":{"name":"Espresso Bar","amenity":"cafe"}},
			{"type":"node","id":43,"lat":52.53,"lon":13.42,"tags":{"amenity":"cafe"}},
			{"type":"node","id":44,"lat":52.54,"lon":13.43,"tags":{"name":"Pond","amenity":"fountain"}}
		]}`))
	}))
	defer srv.Close()

	c := NewOverpassClient(srv.URL, 5*time.Second)
	got, err := c.Nearby(context.Background(), 52.52, 13.41, 500)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	// the nameless element is skipped
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	first := got[0]
	if first.Name != "Espresso Bar" || first.ExternalPlaceID != "osm:node/42" || first.Category != "CAFE" {
		t.Fatalf("unexpected place: %+v", first)
	}
	if got[1].Category != "OTHER" {
		t.Fatalf("unknown amenity should map to OTHER, got %s", got[1].Category)
	}
}

func TestOverpassNearbyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOverpassClient(srv.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Nearby(ctx, 52.52, 13.41, 500); err == nil {
		t.Fatal("expected an error from a failing upstream")
	}
}
