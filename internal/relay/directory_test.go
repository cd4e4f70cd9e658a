package relay

import (
	"testing"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
	"github.com/nexus-FayazKhan/Wattnest/internal/config"
)

func testRoster() []config.RosterEntry {
	return []config.RosterEntry{
		{ID: "bob", Name: "Bob", Role: "Mentor"},
		{ID: "dave", Name: "Dave", Role: "Mentor"},
		{ID: "carol", Name: "Carol", Role: "Mentee"},
	}
}

func TestDirectoryByRole(t *testing.T) {
	d := NewDirectory(testRoster())

	mentors := d.Mentors("")
	if len(mentors) != 2 || mentors[0].ID != "bob" || mentors[1].ID != "dave" {
		t.Fatalf("unexpected mentors: %+v", mentors)
	}
	mentees := d.Mentees("")
	if len(mentees) != 1 || mentees[0].ID != "carol" {
		t.Fatalf("unexpected mentees: %+v", mentees)
	}
}

func TestDirectoryExcludesRequester(t *testing.T) {
	d := NewDirectory(testRoster())

	mentors := d.Mentors("bob")
	for _, u := range mentors {
		if u.ID == "bob" {
			t.Fatal("requesting user must be excluded from their own connections")
		}
	}
	if len(mentors) != 1 {
		t.Fatalf("expected 1 mentor with bob excluded, got %d", len(mentors))
	}
}

func TestDirectoryRecordEnrichesWithoutChangingRole(t *testing.T) {
	d := NewDirectory(testRoster())

	d.Record("bob", "Bobby", "https://example.com/bob.png")

	mentors := d.Mentors("")
	if len(mentors) != 2 {
		t.Fatalf("recording a known user must not change roles, got %d mentors", len(mentors))
	}
	if mentors[0].Name != "Bobby" || mentors[0].ImageURL == "" {
		t.Fatalf("record should update profile fields: %+v", mentors[0])
	}

	// An unknown joiner is tracked but roleless until the roster says so.
	d.Record("edna", "Edna", "")
	if d.Count() != 4 {
		t.Fatalf("expected 4 known users, got %d", d.Count())
	}
	for _, u := range append(d.Mentors(""), d.Mentees("")...) {
		if u.ID == "edna" {
			t.Fatal("roleless users must not appear in role listings")
		}
	}
}

func TestDirectoryRolesMatchSessionRoles(t *testing.T) {
	d := NewDirectory([]config.RosterEntry{{ID: "m", Name: "M", Role: string(chatsession.RoleMentor)}})
	if got := d.Mentors(""); len(got) != 1 {
		t.Fatalf("roster roles should line up with session roles, got %+v", got)
	}
}
