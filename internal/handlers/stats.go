package handlers

import (
	"net/http"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	ConnectedSockets int `json:"connected_sockets"`
	ActiveRooms      int `json:"active_rooms"`
	KnownUsers       int `json:"known_users"`
}

// Stats returns live relay statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, StatsResponse{
		ConnectedSockets: h.hub.ClientCount(),
		ActiveRooms:      h.hub.RoomCount(),
		KnownUsers:       h.hub.Directory().Count(),
	})
}
