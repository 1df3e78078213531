package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/internal/testutil"
)

func TestListUsersEmailFilter(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	testutil.CreateUser(t, db, "other@singalong.pub", "hunter22", false)
	staff := testutil.CreateUser(t, db, "staff@openkj.dev", "hunter22", true)

	c, rec := testutil.NewJSONContext(http.MethodGet, "/api/admin/users?email=karaoke", "")
	testutil.AsUser(c, staff.ID, true)
	if err := ListUsers(c); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Users []model.User `json:"users"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Users) != 1 || resp.Users[0].Email != "owner@karaoke.bar" {
		t.Fatalf("unexpected filter result: %+v", resp.Users)
	}
}

func TestUserNotes(t *testing.T) {
	db := testutil.NewTestDB(t)
	customer := testutil.CreateUser(t, db, "owner@karaoke.bar", "hunter22", false)
	staff := testutil.CreateUser(t, db, "staff@openkj.dev", "hunter22", true)

	c, rec := testutil.NewJSONContext(http.MethodPost, "/api/admin/users/:id/notes",
		`{"body":"Asked for an invoice copy"}`)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", customer.ID))
	testutil.AsUser(c, staff.ID, true)
	if err := CreateUserNote(c); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var note model.UserNote
	decodeBody(t, rec, &note)
	if note.AuthorID != staff.ID || note.UserID != customer.ID {
		t.Fatalf("unexpected note attribution: %+v", note)
	}

	c, rec = testutil.NewJSONContext(http.MethodGet, "/api/admin/users/:id/notes", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", customer.ID))
	testutil.AsUser(c, staff.ID, true)
	if err := ListUserNotes(c); err != nil {
		t.Fatalf("list notes: %v", err)
	}
	var resp struct {
		Notes []model.UserNote `json:"notes"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(resp.Notes))
	}

	c, rec = testutil.NewJSONContext(http.MethodDelete, "/api/admin/notes/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprintf("%d", note.ID))
	testutil.AsUser(c, staff.ID, true)
	if err := DeleteUserNote(c); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateUserNoteUnknownSubject(t *testing.T) {
	db := testutil.NewTestDB(t)
	staff := testutil.CreateUser(t, db, "staff@openkj.dev", "hunter22", true)

	c, rec := testutil.NewJSONContext(http.MethodPost, "/api/admin/users/:id/notes",
		`{"body":"ghost"}`)
	c.SetParamNames("id")
	c.SetParamValues("9999")
	testutil.AsUser(c, staff.ID, true)
	if err := CreateUserNote(c); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
