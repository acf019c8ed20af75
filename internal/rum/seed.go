package rum

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Seed describes how to reach one RUM group: its id plus the API
// endpoints (and access token) baked into the rum:// seed URL.
type Seed struct {
	GroupID string
	Name    string
	APIs    []string
	Token   string
}

// ParseSeed decodes a rum://seed?... URL. The g parameter carries the
// group uuid as raw-url base64 bytes, a the group name, and u one or more
// pipe-separated API endpoints whose jwt query parameter is the access
// token.
func ParseSeed(raw string) (*Seed, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}
	if u.Scheme != "rum" {
		return nil, fmt.Errorf("invalid seed url scheme: %q", u.Scheme)
	}

	q := u.Query()
	gidBytes, err := base64.RawURLEncoding.DecodeString(q.Get("g"))
	if err != nil {
		return nil, fmt.Errorf("invalid group id in seed: %w", err)
	}
	gid, err := uuid.FromBytes(gidBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid group id in seed: %w", err)
	}

	seed := &Seed{
		GroupID: gid.String(),
		Name:    q.Get("a"),
	}

	for _, api := range strings.Split(q.Get("u"), "|") {
		if api == "" {
			continue
		}
		apiURL, err := url.Parse(api)
		if err != nil {
			return nil, fmt.Errorf("invalid api endpoint in seed: %w", err)
		}
		if jwt := apiURL.Query().Get("jwt"); jwt != "" && seed.Token == "" {
			seed.Token = jwt
		}
		apiURL.RawQuery = ""
		seed.APIs = append(seed.APIs, strings.TrimSuffix(apiURL.String(), "/"))
	}
	if len(seed.APIs) == 0 {
		return nil, fmt.Errorf("seed carries no api endpoint")
	}

	return seed, nil
}
