package config

// Seed is a declarative bootstrap: users and the channel origins they
// subscribe to. Applying a seed is idempotent, so the same file can ship
// with every deployment.
type Seed struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	Email    string   `yaml:"email"`
	Channels []string `yaml:"channels"`
}
