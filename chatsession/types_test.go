package chatsession

import "testing"

func TestDeriveRoomIDCommutative(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"alice", "bob"},
		{"user_2vX9", "user_8aB1"},
		{"same", "same"},
		{"", "x"},
	}
	for _, pair := range pairs {
		ab := DeriveRoomID(pair[0], pair[1])
		ba := DeriveRoomID(pair[1], pair[0])
		if ab != ba {
			t.Errorf("DeriveRoomID(%q,%q)=%q but reversed gives %q", pair[0], pair[1], ab, ba)
		}
	}
}

func TestDeriveRoomIDOrdering(t *testing.T) {
	if got := DeriveRoomID("u1", "u2"); got != "u1-u2" {
		t.Fatalf("expected u1-u2, got %q", got)
	}
	if got := DeriveRoomID("u2", "u1"); got != "u1-u2" {
		t.Fatalf("expected u1-u2, got %q", got)
	}
	// Lexicographic, not numeric
	if got := DeriveRoomID("u10", "u2"); got != "u10-u2" {
		t.Fatalf("expected u10-u2, got %q", got)
	}
}

func TestRoleOpposite(t *testing.T) {
	if RoleMentor.Opposite() != RoleMentee {
		t.Fatal("opposite of Mentor should be Mentee")
	}
	if RoleMentee.Opposite() != RoleMentor {
		t.Fatal("opposite of Mentee should be Mentor")
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleMentor.Valid() || !RoleMentee.Valid() {
		t.Fatal("known roles should be valid")
	}
	if Role("Admin").Valid() {
		t.Fatal("unknown role should be invalid")
	}
}

func TestDedupKey(t *testing.T) {
	a := Message{SenderID: "u1", Timestamp: 100, Body: "one"}
	b := Message{SenderID: "u1", Timestamp: 100, Body: "two"}
	c := Message{SenderID: "u1", Timestamp: 101}
	d := Message{SenderID: "u2", Timestamp: 100}

	if a.DedupKey() != b.DedupKey() {
		t.Fatal("same sender and timestamp should collide regardless of body")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Fatal("different timestamps should not collide")
	}
	if a.DedupKey() == d.DedupKey() {
		t.Fatal("different senders should not collide")
	}
}
