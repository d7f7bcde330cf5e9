package domain

import (
	"net/url"
	"strings"
	"time"
)

// Settings holds the device's sync configuration. Zero values mean
// "not configured": an empty APIURL or APIToken keeps the engine in
// the missing-config state, and a nil LastPulledAt makes the next
// pull fetch everything since the epoch.
type Settings struct {
	APIURL       string     `json:"api_url,omitempty"`
	APIToken     string     `json:"api_token,omitempty"`
	LastPulledAt *time.Time `json:"last_pulled_at,omitempty"`
}

// Configured reports whether both the endpoint URL and the auth token
// are present.
func (s *Settings) Configured() bool {
	return s.APIURL != "" && s.APIToken != ""
}

// IsLocalhostURL reports whether the configured endpoint points at
// the local machine. Localhost endpoints bypass the online probe so
// development against a local server works with networking down.
func IsLocalhostURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "" {
		// "localhost:8080" parses with an empty host; fall back to
		// the raw prefix.
		host = strings.SplitN(raw, ":", 2)[0]
	}
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}
