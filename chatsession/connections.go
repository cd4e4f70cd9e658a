package chatsession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Profile is one user as returned by the connections endpoints.
type Profile struct {
	ClerkID  string `json:"clerkId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DisplayName returns the best available name for the profile.
func (p Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	if p.FullName != "" {
		return p.FullName
	}
	return "Unknown User"
}

// ConnectionsClient fetches a user's mentoring connections from the
// connections-listing service.
type ConnectionsClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewConnectionsClient creates a client for the given base URL.
func NewConnectionsClient(baseURL string) *ConnectionsClient {
	return &ConnectionsClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ConnectedMentors lists the mentors connected to userID.
func (c *ConnectionsClient) ConnectedMentors(ctx context.Context, userID string) ([]Profile, error) {
	return c.fetch(ctx, "/api/connections/connected-mentors/"+userID)
}

// ConnectedMentees lists the mentees connected to userID.
func (c *ConnectionsClient) ConnectedMentees(ctx context.Context, userID string) ([]Profile, error) {
	return c.fetch(ctx, "/api/connections/connected-mentees/"+userID)
}

// Connections assembles the full participant list for self: connected
// mentors tagged RoleMentor, connected mentees tagged RoleMentee, with self
// filtered out.
func (c *ConnectionsClient) Connections(ctx context.Context, self Identity) ([]Participant, error) {
	mentors, err := c.ConnectedMentors(ctx, self.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch mentors: %w", err)
	}
	mentees, err := c.ConnectedMentees(ctx, self.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch mentees: %w", err)
	}

	var out []Participant
	for _, p := range mentors {
		if p.ClerkID == self.ID {
			continue
		}
		out = append(out, Participant{ID: p.ClerkID, Name: p.DisplayName(), Role: RoleMentor})
	}
	for _, p := range mentees {
		if p.ClerkID == self.ID {
			continue
		}
		out = append(out, Participant{ID: p.ClerkID, Name: p.DisplayName(), Role: RoleMentee})
	}
	return out, nil
}

func (c *ConnectionsClient) fetch(ctx context.Context, path string) ([]Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("connections error %d: %s", resp.StatusCode, errResp.Error)
	}

	var profiles []Profile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
