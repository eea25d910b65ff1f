package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds relay server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string
	// PublicURL is the externally visible origin used to build watch links
	// (e.g. "http://share.example.com"). Defaults to http://localhost:<port>.
	PublicURL string
	// DatabasePath is the SQLite file backing the session action log.
	DatabasePath   string
	Debug          bool
	AllowedOrigins []string
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr         *string
	PublicURL    *string
	DatabasePath *string
	Debug        *bool
}

// Load loads server configuration from environment variables and applies any
// explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	port := 3111
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		port = p
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	publicURL := os.Getenv("PUBLIC_URL")
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", port)
	}
	if overrides.PublicURL != nil {
		publicURL = *overrides.PublicURL
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./sharecast.db"
	}
	if overrides.DatabasePath != nil {
		dbPath = *overrides.DatabasePath
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	return &Config{
		Addr:           addr,
		PublicURL:      publicURL,
		DatabasePath:   dbPath,
		Debug:          debug,
		AllowedOrigins: []string{"*"}, // For self-hosted, allow all origins
	}, nil
}
