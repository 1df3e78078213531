package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/internal/testutil"
)

func TestCreateVenue(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)

	c, rec := testutil.NewJSONContext(http.MethodPost, "/api/venues",
		`{"name":"The Velvet Note","city":"Austin"}`)
	testutil.AsUser(c, user.ID, false)
	if err := CreateVenue(c); err != nil {
		t.Fatalf("create venue: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var venue model.Venue
	decodeBody(t, rec, &venue)
	if venue.URLName != "the-velvet-note" {
		t.Fatalf("expected derived url name, got %q", venue.URLName)
	}

	// Every client-visible write bumps the sync serial
	if got := testutil.Serial(t, db, user.ID); got != 1 {
		t.Fatalf("expected serial 1 after create, got %d", got)
	}
}

func TestCreateVenueDuplicateURLName(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	testutil.CreateVenue(t, db, user.ID, "the-velvet-note")

	c, rec := testutil.NewJSONContext(http.MethodPost, "/api/venues",
		`{"name":"Velvet Again","url_name":"the-velvet-note"}`)
	testutil.AsUser(c, user.ID, false)
	if err := CreateVenue(c); err != nil {
		t.Fatalf("create venue: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	// Two different users may share a url name
	other := testutil.CreateUser(t, db, "other@karaoke.bar", "hunter22", false)
	c, rec = testutil.NewJSONContext(http.MethodPost, "/api/venues",
		`{"name":"Velvet Note","url_name":"the-velvet-note"}`)
	testutil.AsUser(c, other.ID, false)
	if err := CreateVenue(c); err != nil {
		t.Fatalf("create venue: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a different user, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetVenueAccepting(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	first := testutil.CreateVenue(t, db, user.ID, "first")
	second := testutil.CreateVenue(t, db, user.ID, "second")

	setVenueAccepting := func(venueID uint, accepting bool) int {
		c, rec := testutil.NewJSONContext(http.MethodPost, "/api/venues/:id/accepting",
			fmt.Sprintf(`{"accepting":%t}`, accepting))
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprintf("%d", venueID))
		testutil.AsUser(c, user.ID, false)
		if err := SetVenueAccepting(c); err != nil {
			t.Fatalf("set accepting: %v", err)
		}
		return rec.Code
	}

	if code := setVenueAccepting(first.ID, true); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var state model.State
	if err := db.Where("user_id = ?", user.ID).First(&state).Error; err != nil {
		t.Fatalf("load state: %v", err)
	}
	if !state.Accepting || state.VenueID == nil || *state.VenueID != first.ID {
		t.Fatalf("expected state to track first venue, got accepting=%t venue=%v", state.Accepting, state.VenueID)
	}

	// Switching venues turns the first one off
	if code := setVenueAccepting(second.ID, true); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var v1 model.Venue
	if err := db.First(&v1, first.ID).Error; err != nil {
		t.Fatalf("reload first venue: %v", err)
	}
	if v1.Accepting {
		t.Fatalf("expected first venue to stop accepting")
	}

	// Turning off clears the state's venue
	if code := setVenueAccepting(second.ID, false); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if err := db.Where("user_id = ?", user.ID).First(&state).Error; err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if state.Accepting || state.VenueID != nil {
		t.Fatalf("expected cleared state, got accepting=%t venue=%v", state.Accepting, state.VenueID)
	}

	// Three toggles, three serial bumps
	if got := testutil.Serial(t, db, user.ID); got != 3 {
		t.Fatalf("expected serial 3, got %d", got)
	}
}

func TestUpdateVenuePartial(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "velvet")
	if err := db.Model(venue).Updates(map[string]interface{}{
		"address1": "600 Congress Ave",
		"city":     "Austin",
		"state":    "TX",
		"zip":      "78701",
	}).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}

	// A name-only patch must leave the stored address alone
	c, rec := testutil.NewJSONContext(http.MethodPatch, "/api/venues/:id",
		`{"name":"Velvet Note"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", venue.ID))
	testutil.AsUser(c, user.ID, false)
	if err := UpdateVenue(c); err != nil {
		t.Fatalf("update venue: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Venue
	if err := db.First(&reloaded, venue.ID).Error; err != nil {
		t.Fatalf("reload venue: %v", err)
	}
	if reloaded.Name != "Velvet Note" {
		t.Fatalf("expected renamed venue, got %q", reloaded.Name)
	}
	if reloaded.Address1 != "600 Congress Ave" || reloaded.City != "Austin" ||
		reloaded.State != "TX" || reloaded.Zip != "78701" {
		t.Fatalf("expected address to survive a name-only patch, got %+v", reloaded)
	}

	// An explicit empty string still clears a field
	c, rec = testutil.NewJSONContext(http.MethodPatch, "/api/venues/:id",
		`{"address2":""}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", venue.ID))
	testutil.AsUser(c, user.ID, false)
	if err := UpdateVenue(c); err != nil {
		t.Fatalf("update venue: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := db.First(&reloaded, venue.ID).Error; err != nil {
		t.Fatalf("reload venue: %v", err)
	}
	if reloaded.Address1 != "600 Congress Ave" {
		t.Fatalf("expected address1 untouched, got %q", reloaded.Address1)
	}
}

func TestDeleteVenueClearsState(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "doomed")

	if err := setAccepting(user.ID, venue, true); err != nil {
		t.Fatalf("set accepting: %v", err)
	}

	c, rec := testutil.NewJSONContext(http.MethodDelete, "/api/venues/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", venue.ID))
	testutil.AsUser(c, user.ID, false)
	if err := DeleteVenue(c); err != nil {
		t.Fatalf("delete venue: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var state model.State
	if err := db.Where("user_id = ?", user.ID).First(&state).Error; err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Accepting || state.VenueID != nil {
		t.Fatalf("expected state cleared after delete, got accepting=%t venue=%v", state.Accepting, state.VenueID)
	}
}

func TestDeleteVenueRetiresPendingRequests(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "doomed")
	kept := testutil.CreateVenue(t, db, user.ID, "kept")

	requests := []model.Request{
		{UserID: user.ID, VenueID: venue.ID, Singer: "Dave", Title: "Africa"},
		{UserID: user.ID, VenueID: kept.ID, Singer: "Sam", Title: "Waterloo"},
	}
	for i := range requests {
		if err := db.Create(&requests[i]).Error; err != nil {
			t.Fatalf("seed request: %v", err)
		}
	}

	c, rec := testutil.NewJSONContext(http.MethodDelete, "/api/venues/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", venue.ID))
	testutil.AsUser(c, user.ID, false)
	if err := DeleteVenue(c); err != nil {
		t.Fatalf("delete venue: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The deleted venue's request is retired, the other venue's is not
	var pending []model.Request
	if err := db.Where("user_id = ? AND processed = ?", user.ID, false).Find(&pending).Error; err != nil {
		t.Fatalf("load pending requests: %v", err)
	}
	if len(pending) != 1 || pending[0].VenueID != kept.ID {
		t.Fatalf("expected only the kept venue's request pending, got %+v", pending)
	}
}

func TestGetVenueOwnership(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	intruder := testutil.CreateUser(t, db, "intruder@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, owner.ID, "private")

	c, rec := testutil.NewJSONContext(http.MethodGet, "/api/venues/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", venue.ID))
	testutil.AsUser(c, intruder.ID, false)
	if err := GetVenue(c); err != nil {
		t.Fatalf("get venue: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign venue, got %d", rec.Code)
	}
}

func TestSearchVenuePlacesUnconfigured(t *testing.T) {
	testutil.NewTestDB(t)
	InitPlaces(nil)

	c, rec := testutil.NewJSONContext(http.MethodGet, "/api/venues/search?q=karaoke", "")
	testutil.AsUser(c, 1, false)
	if err := SearchVenuePlaces(c); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when place search is unconfigured, got %d", rec.Code)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Velvet Note", "the-velvet-note"},
		{"Bar & Grill 99", "bar-grill-99"},
		{"  spaced  out  ", "spaced-out"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
