package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Load() (*Seed, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.validate(&seed); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", l.path, err)
	}

	return &seed, nil
}

func (l *Loader) validate(seed *Seed) error {
	seen := make(map[string]bool, len(seed.Users))

	for i, user := range seed.Users {
		if user.Email == "" {
			return fmt.Errorf("user at index %d has no email", i)
		}
		if seen[user.Email] {
			return fmt.Errorf("duplicate user email: %s", user.Email)
		}
		seen[user.Email] = true

		for _, origin := range user.Channels {
			if origin == "" {
				return fmt.Errorf("user %s has an empty channel origin", user.Email)
			}
			parsed, err := url.Parse(origin)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("user %s has an invalid channel origin: %s", user.Email, origin)
			}
		}
	}

	return nil
}
