package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexus-FayazKhan/Wattnest/internal/relay"
)

// ConnectionProfile is the connections-listing wire shape consumed by the
// chat client.
type ConnectionProfile struct {
	ClerkID  string `json:"clerkId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ConnectedMentors lists the mentors connected to the given user.
func (h *Handler) ConnectedMentors(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, h.hub.Directory().Mentors)
}

// ConnectedMentees lists the mentees connected to the given user.
func (h *Handler) ConnectedMentees(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, h.hub.Directory().Mentees)
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request, list func(exceptID string) []relay.User) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "user id is required")
		return
	}

	users := list(userID)
	profiles := make([]ConnectionProfile, len(users))
	for i, u := range users {
		profiles[i] = ConnectionProfile{
			ClerkID:  u.ID,
			Username: u.Name,
			FullName: u.Name,
			ImageURL: u.ImageURL,
		}
	}

	h.JSON(w, http.StatusOK, profiles)
}
