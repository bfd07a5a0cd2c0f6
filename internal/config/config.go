package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "WORDLE"

	defaultDatabaseDriver = "sqlite"
	defaultDatabaseDSN    = "wordle.db"
	defaultChannelName    = "wordle"
	defaultLogLevel       = "info"
	defaultTimezone       = "Europe/London"
	defaultSummaryLimit   = 5
	defaultUsernameMax    = 12
	defaultScanCron       = "*/5 * * * *"
	defaultSummaryCron    = "0 9 * * *"
)

// Config captures the bot's runtime configuration.
type Config struct {
	Token             string
	DatabaseDriver    string
	DatabaseDSN       string
	ChannelName       string
	LogLevel          string
	Timezone          string
	SummaryLimit      int
	UsernameMaxLength int
	ScanCron          string
	SummaryCron       string
	SyncCommands      bool
}

// NewViper returns a viper instance with defaults and env bindings applied.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper
// instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("channel.name", defaultChannelName)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("timezone", defaultTimezone)
	configViper.SetDefault("summary.limit", defaultSummaryLimit)
	configViper.SetDefault("summary.username_max_length", defaultUsernameMax)
	configViper.SetDefault("jobs.scan_cron", defaultScanCron)
	configViper.SetDefault("jobs.summary_cron", defaultSummaryCron)
	configViper.SetDefault("commands.sync", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (Config, error) {
	cfg := Config{
		Token:             configViper.GetString("token"),
		DatabaseDriver:    configViper.GetString("database.driver"),
		DatabaseDSN:       configViper.GetString("database.dsn"),
		ChannelName:       configViper.GetString("channel.name"),
		LogLevel:          configViper.GetString("log.level"),
		Timezone:          configViper.GetString("timezone"),
		SummaryLimit:      configViper.GetInt("summary.limit"),
		UsernameMaxLength: configViper.GetInt("summary.username_max_length"),
		ScanCron:          configViper.GetString("jobs.scan_cron"),
		SummaryCron:       configViper.GetString("jobs.summary_cron"),
		SyncCommands:      configViper.GetBool("commands.sync"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("token is required")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if strings.TrimSpace(c.ChannelName) == "" {
		return fmt.Errorf("channel.name is required")
	}
	if c.SummaryLimit <= 0 {
		return fmt.Errorf("summary.limit must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
