// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	AppID        string `env:"DISCORD_APP_ID,required,notEmpty"`
	// GuildIDs are the publish scopes, comma separated; none publishes
	// global commands.
	GuildIDs []string `env:"DISCORD_GUILD_ID" envSeparator:","`

	CommandsDir     string `env:"COMMANDS_DIR" envDefault:"commands"`
	CommandTemplate string `env:"COMMAND_TEMPLATE" envDefault:"example.command.yaml"`
	StrictNames     bool   `env:"STRICT_COMMAND_NAMES" envDefault:"false"`

	DrainTimeout time.Duration `env:"SHUTDOWN_DRAIN_TIMEOUT" envDefault:"10s"`
	PublishRate  float64       `env:"PUBLISH_RATE" envDefault:"1"`
	EventBuffer  int           `env:"EVENT_BUFFER" envDefault:"64"`
}

// LoadDotEnv loads files into the process environment without overriding
// variables that are already set. Missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("[WARN] Failed to load %s: %v", f, err)
		}
	}
}

// New loads .env and parses the environment.
func New() (*Config, error) {
	LoadDotEnv()
	return Parse()
}

// Parse reads the current environment into a Config.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.GuildIDs = splitIDs(cfg.GuildIDs)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.CommandsDir == "" {
		errs = append(errs, errors.New("COMMANDS_DIR must not be empty"))
	}
	if c.DrainTimeout < 0 {
		errs = append(errs, errors.New("SHUTDOWN_DRAIN_TIMEOUT must not be negative"))
	}
	if c.PublishRate <= 0 {
		errs = append(errs, errors.New("PUBLISH_RATE must be positive"))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, errors.New("EVENT_BUFFER must not be negative"))
	}
	return errors.Join(errs...)
}

// splitIDs trims list entries and drops empty ones.
func splitIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
