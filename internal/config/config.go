package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken    string   `envconfig:"BOT_TOKEN" required:"true"`
	ChannelID   int64    `envconfig:"CHANNEL_ID" required:"true"` // chat the compiled standups are posted to
	Admins      []string `envconfig:"ADMINS"`                     // handles allowed to change schedule settings
	DBPath      string   `envconfig:"DB_PATH" default:"./data/standup.db"`
	DefaultTZ   string   `envconfig:"DEFAULT_TZ" default:"Europe/Lisbon"`   // assigned to new subscribers
	ReferenceTZ string   `envconfig:"REFERENCE_TZ" default:"Europe/Lisbon"` // trigger time is interpreted here
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`             // debug|info|warn|error
	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8080"`            // healthz
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
