package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// RosterEntry is one pre-seeded user of the relay's connections directory.
type RosterEntry struct {
	ID   string
	Name string
	Role string // "Mentor" or "Mentee"
}

// Config holds all configuration for the relay server.
type Config struct {
	Port string
	Env  string

	// HistoryDB is the SQLite path for durable room history. Empty means
	// in-memory history only.
	HistoryDB string
	// HistoryLimit caps the number of messages kept (and served) per room.
	HistoryLimit int

	// Roster pre-seeds the connections directory.
	Roster []RosterEntry
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "3001"),
		Env:          getEnv("ENV", "development"),
		HistoryDB:    os.Getenv("HISTORY_DB"),
		HistoryLimit: 500,
	}

	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid HISTORY_LIMIT %q", v)
		}
		cfg.HistoryLimit = n
	}

	// Parse roster (comma-separated id:name:role triples)
	if roster := os.Getenv("ROSTER"); roster != "" {
		entries, err := ParseRoster(roster)
		if err != nil {
			return nil, err
		}
		cfg.Roster = entries
	}

	return cfg, nil
}

// ParseRoster parses a comma-separated list of id:name:role triples.
func ParseRoster(s string) ([]RosterEntry, error) {
	var entries []RosterEntry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid roster entry %q (want id:name:role)", part)
		}
		role := strings.TrimSpace(fields[2])
		if role != "Mentor" && role != "Mentee" {
			return nil, fmt.Errorf("invalid roster role %q in %q", role, part)
		}
		entries = append(entries, RosterEntry{
			ID:   strings.TrimSpace(fields[0]),
			Name: strings.TrimSpace(fields[1]),
			Role: role,
		})
	}
	return entries, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
