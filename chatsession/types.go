// Package chatsession implements the client side of the Wattnest mentor
// chat protocol: canonical room-id derivation, the join/history session
// lifecycle against a realtime transport, message deduplication, and the
// send path.
package chatsession

import (
	"sort"
	"strconv"
	"strings"
)

// Role identifies which side of a mentoring conversation a participant is on.
type Role string

const (
	RoleMentor Role = "Mentor"
	RoleMentee Role = "Mentee"
)

// Opposite returns the role of the other side of a conversation. Messages
// sent to a partner are tagged with the opposite of the partner's role.
func (r Role) Opposite() Role {
	if r == RoleMentor {
		return RoleMentee
	}
	return RoleMentor
}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleMentee
}

// Identity is the signed-in user, as supplied by the external identity
// provider. The session treats it as read-only input.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"imageUrl"`
}

// Participant is one side of a conversation.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Message is a single chat message. Immutable once created. The body is
// serialized as "message", matching the relay wire format.
type Message struct {
	ID         string `json:"id,omitempty"` // relay-assigned ULID, absent until echoed
	RoomID     string `json:"roomId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Body       string `json:"message"`
	SenderRole Role   `json:"senderRole"`
	Timestamp  int64  `json:"timestamp"` // unix ms
	Nonce      string `json:"nonce,omitempty"`
}

// DedupKey returns the identity used to detect duplicate delivery. The relay
// does not guarantee a server-assigned id on every path, so the key is the
// (senderId, timestamp) pair. Two messages from the same sender in the same
// millisecond collide; the nonce field exists to tighten this later.
func (m Message) DedupKey() string {
	return m.SenderID + "\x00" + strconv.FormatInt(m.Timestamp, 10)
}

// DeriveRoomID computes the canonical room id for an unordered pair of
// participant ids: the ids sorted lexicographically, joined with "-".
// DeriveRoomID(a, b) == DeriveRoomID(b, a) for all pairs.
func DeriveRoomID(idA, idB string) string {
	ids := []string{idA, idB}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}
