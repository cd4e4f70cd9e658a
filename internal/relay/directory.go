package relay

import (
	"sort"
	"sync"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
	"github.com/nexus-FayazKhan/Wattnest/internal/config"
)

// User is one entry in the relay's connections directory.
type User struct {
	ID       string
	Name     string
	ImageURL string
	Role     chatsession.Role
}

// Directory tracks known users and their mentoring role. It is seeded from
// the ROSTER config and enriched by profiles seen in join requests, and it
// backs the connected-mentors/connected-mentees endpoints.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory creates a directory seeded with the given roster.
func NewDirectory(roster []config.RosterEntry) *Directory {
	d := &Directory{users: make(map[string]User)}
	for _, e := range roster {
		d.users[e.ID] = User{ID: e.ID, Name: e.Name, Role: chatsession.Role(e.Role)}
	}
	return d
}

// Record upserts a profile observed in a join request. The role of an
// already-known user is never overwritten; a previously unseen user joins
// the directory without a role until the roster says otherwise.
func (d *Directory) Record(id, name, imageURL string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		u = User{ID: id}
	}
	if name != "" {
		u.Name = name
	}
	if imageURL != "" {
		u.ImageURL = imageURL
	}
	d.users[id] = u
}

// Mentors returns all known mentors except the requesting user, sorted by id.
func (d *Directory) Mentors(exceptID string) []User {
	return d.byRole(chatsession.RoleMentor, exceptID)
}

// Mentees returns all known mentees except the requesting user, sorted by id.
func (d *Directory) Mentees(exceptID string) []User {
	return d.byRole(chatsession.RoleMentee, exceptID)
}

// Count returns the number of known users.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func (d *Directory) byRole(role chatsession.Role, exceptID string) []User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []User
	for _, u := range d.users {
		if u.Role == role && u.ID != exceptID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
