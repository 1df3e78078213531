package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/internal/testutil"
)

func TestReplaceSongs(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)

	replace := func(body string) int {
		c, rec := testutil.NewJSONContext(http.MethodPut, "/sync/songs", body)
		testutil.AsUser(c, user.ID, false)
		if err := ReplaceSongs(c); err != nil {
			t.Fatalf("replace songs: %v", err)
		}
		return rec.Code
	}

	if code := replace(`{"songs":[
		{"artist":"Queen","title":"Somebody to Love"},
		{"artist":"  ABBA ","title":" Waterloo "},
		{"artist":"","title":""}
	]}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var songs []model.Song
	if err := db.Where("user_id = ?", user.ID).Order("id").Find(&songs).Error; err != nil {
		t.Fatalf("load songs: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("expected 2 songs after blank entry dropped, got %d", len(songs))
	}
	if songs[1].Artist != "ABBA" || songs[1].Title != "Waterloo" {
		t.Fatalf("expected trimmed fields, got %q / %q", songs[1].Artist, songs[1].Title)
	}
	if songs[0].Combined != "Queen - Somebody to Love" {
		t.Fatalf("unexpected combined field %q", songs[0].Combined)
	}

	// A second upload fully replaces the first
	if code := replace(`{"songs":[{"artist":"Toto","title":"Africa"}]}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if err := db.Where("user_id = ?", user.ID).Find(&songs).Error; err != nil {
		t.Fatalf("reload songs: %v", err)
	}
	if len(songs) != 1 || songs[0].Artist != "Toto" {
		t.Fatalf("expected replaced songbook, got %+v", songs)
	}

	// Both uploads bump the serial
	if got := testutil.Serial(t, db, user.ID); got != 2 {
		t.Fatalf("expected serial 2, got %d", got)
	}
}

func TestSubmitRequest(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "open-mic")

	submit := func() int {
		c, rec := testutil.NewJSONContext(http.MethodPost, "/sync/requests",
			fmt.Sprintf(`{"venue_id":%d,"singer":"Dave","artist":"Journey","title":"Don't Stop Believin'","wait_time":25}`, venue.ID))
		testutil.AsUser(c, user.ID, false)
		if err := SubmitRequest(c); err != nil {
			t.Fatalf("submit request: %v", err)
		}
		return rec.Code
	}

	// The venue is not accepting yet
	if code := submit(); code != http.StatusConflict {
		t.Fatalf("expected 409 while not accepting, got %d", code)
	}

	if err := setAccepting(user.ID, venue, true); err != nil {
		t.Fatalf("set accepting: %v", err)
	}
	if code := submit(); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	var request model.Request
	if err := db.Where("user_id = ?", user.ID).First(&request).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if request.Singer != "Dave" || request.Processed {
		t.Fatalf("unexpected request: %+v", request)
	}
	if request.WaitTime != 25 {
		t.Fatalf("expected wait time 25, got %d", request.WaitTime)
	}
}

func TestClearRequest(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "open-mic")

	request := model.Request{
		UserID:  user.ID,
		VenueID: venue.ID,
		Singer:  "Dave",
		Artist:  "Journey",
		Title:   "Don't Stop Believin'",
	}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}

	before := testutil.Serial(t, db, user.ID)

	c, rec := testutil.NewJSONContext(http.MethodDelete, "/sync/requests/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", request.ID))
	testutil.AsUser(c, user.ID, false)
	if err := ClearRequest(c); err != nil {
		t.Fatalf("clear request: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Request
	if err := db.First(&reloaded, request.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if !reloaded.Processed {
		t.Fatalf("expected request marked processed")
	}

	// Cleared requests no longer appear in the sync list
	c, rec = testutil.NewJSONContext(http.MethodGet, "/sync/requests", "")
	testutil.AsUser(c, user.ID, false)
	if err := SyncRequests(c); err != nil {
		t.Fatalf("sync requests: %v", err)
	}
	var resp struct {
		Requests []model.Request `json:"requests"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Requests) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(resp.Requests))
	}

	if got := testutil.Serial(t, db, user.ID); got != before+1 {
		t.Fatalf("expected serial bump to %d, got %d", before+1, got)
	}
}

func TestSyncState(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	venue := testutil.CreateVenue(t, db, user.ID, "open-mic")

	if err := setAccepting(user.ID, venue, true); err != nil {
		t.Fatalf("set accepting: %v", err)
	}

	c, rec := testutil.NewJSONContext(http.MethodGet, "/sync/state", "")
	testutil.AsUser(c, user.ID, false)
	if err := SyncState(c); err != nil {
		t.Fatalf("sync state: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state model.State
	decodeBody(t, rec, &state)
	if !state.Accepting || state.VenueID == nil || *state.VenueID != venue.ID {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.Serial != 1 {
		t.Fatalf("expected serial 1, got %d", state.Serial)
	}
}
