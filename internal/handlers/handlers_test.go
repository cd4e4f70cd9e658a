package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/internal/api"
	"github.com/nexus-FayazKhan/Wattnest/internal/config"
	"github.com/nexus-FayazKhan/Wattnest/internal/relay"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	roster := []config.RosterEntry{
		{ID: "bob", Name: "Bob", Role: "Mentor"},
		{ID: "carol", Name: "Carol", Role: "Mentee"},
	}
	hub := relay.NewHub(relay.NewMemoryHistory(100), relay.NewDirectory(roster), 100, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), hub))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var health struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	if code := getJSON(t, srv.URL+"/health", &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
	if health.Checks["history"].Status != "pass" {
		t.Errorf("history check should pass: %+v", health.Checks)
	}
}

func TestConnectedMentorsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var profiles []struct {
		ClerkID  string `json:"clerkId"`
		Username string `json:"username"`
	}
	if code := getJSON(t, srv.URL+"/api/connections/connected-mentors/carol", &profiles); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(profiles) != 1 || profiles[0].ClerkID != "bob" || profiles[0].Username != "Bob" {
		t.Fatalf("unexpected mentors: %+v", profiles)
	}

	// The requesting user never appears in their own listing.
	if code := getJSON(t, srv.URL+"/api/connections/connected-mentors/bob", &profiles); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(profiles) != 0 {
		t.Fatalf("bob should not see himself, got %+v", profiles)
	}
}

func TestConnectedMenteesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var profiles []struct {
		ClerkID string `json:"clerkId"`
	}
	if code := getJSON(t, srv.URL+"/api/connections/connected-mentees/bob", &profiles); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(profiles) != 1 || profiles[0].ClerkID != "carol" {
		t.Fatalf("unexpected mentees: %+v", profiles)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var stats struct {
		ConnectedSockets int `json:"connected_sockets"`
		ActiveRooms      int `json:"active_rooms"`
		KnownUsers       int `json:"known_users"`
	}
	if code := getJSON(t, srv.URL+"/stats", &stats); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if stats.KnownUsers != 2 {
		t.Errorf("expected 2 known users from the roster, got %d", stats.KnownUsers)
	}
	if stats.ConnectedSockets != 0 || stats.ActiveRooms != 0 {
		t.Errorf("fresh relay should have no sockets or rooms: %+v", stats)
	}
}
