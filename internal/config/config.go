// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/danielolaszy/nudge/pkg/models"
	"github.com/spf13/viper"
)

const (
	defaultSlackURL    = "https://slack.com"
	defaultListenAddr  = "127.0.0.1:8001"
	defaultHTTPTimeout = 30 * time.Second
	defaultRunTimeout  = 2 * time.Minute
	defaultQueueSize   = 16
	defaultSlackRate   = 1.0
)

// Config holds all configuration parameters for the application.
type Config struct {
	Jira   JiraConfig
	Slack  SlackConfig
	Server ServerConfig
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
	Timeout  time.Duration
}

// SlackConfig holds Slack specific configuration.
type SlackConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	RatePerSec float64
}

// ServerConfig holds settings of the HTTP trigger endpoint.
type ServerConfig struct {
	Addr       string
	RunTimeout time.Duration
	QueueSize  int
}

// LoadConfig initializes and loads configuration from environment variables
// and, when path is not empty, from a config file. Environment variables take
// precedence over the file. Credentials are not validated here; callers pick
// the validation matching what they are about to do.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Only these names are read from the environment, first name wins
	bindings := map[string][]string{
		"jira.url":           {"JIRA_URL"},
		"jira.username":      {"JIRA_USER_NAME", "JIRA_USERNAME"},
		"jira.token":         {"JIRA_API_TOKEN", "JIRA_TOKEN"},
		"jira.timeout":       {"JIRA_TIMEOUT"},
		"slack.url":          {"SLACK_API_URL"},
		"slack.token":        {"SLACK_BOT_TOKEN"},
		"slack.timeout":      {"SLACK_TIMEOUT"},
		"slack.rate_per_sec": {"SLACK_RATE_PER_SEC"},
		"server.addr":        {"LISTEN_ADDR"},
		"server.run_timeout": {"RUN_TIMEOUT"},
		"server.queue_size":  {"QUEUE_SIZE"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("jira.timeout", defaultHTTPTimeout)
	v.SetDefault("slack.url", defaultSlackURL)
	v.SetDefault("slack.timeout", defaultHTTPTimeout)
	v.SetDefault("slack.rate_per_sec", defaultSlackRate)
	v.SetDefault("server.addr", defaultListenAddr)
	v.SetDefault("server.run_timeout", defaultRunTimeout)
	v.SetDefault("server.queue_size", defaultQueueSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config := &Config{
		Jira: JiraConfig{
			URL:      strings.TrimRight(v.GetString("jira.url"), "/"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
			Timeout:  v.GetDuration("jira.timeout"),
		},
		Slack: SlackConfig{
			URL:        strings.TrimRight(v.GetString("slack.url"), "/"),
			Token:      v.GetString("slack.token"),
			Timeout:    v.GetDuration("slack.timeout"),
			RatePerSec: v.GetFloat64("slack.rate_per_sec"),
		},
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			RunTimeout: v.GetDuration("server.run_timeout"),
			QueueSize:  v.GetInt("server.queue_size"),
		},
	}

	if config.Server.QueueSize < 0 {
		return nil, fmt.Errorf("invalid QUEUE_SIZE %d: must not be negative", config.Server.QueueSize)
	}
	if config.Slack.RatePerSec < 0 {
		return nil, fmt.Errorf("invalid SLACK_RATE_PER_SEC %v: must not be negative", config.Slack.RatePerSec)
	}

	return config, nil
}

// ValidateConfig ensures that every value needed to post digests is provided.
func ValidateConfig(config *Config) error {
	missingVars := append(missingJiraVars(config), missingSlackVars(config)...)
	if len(missingVars) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %v", models.ErrConfigMissing, missingVars)
	}
	return validateJiraURL(config.Jira.URL)
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	if missingVars := missingJiraVars(config); len(missingVars) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %v", models.ErrConfigMissing, missingVars)
	}
	return validateJiraURL(config.Jira.URL)
}

func missingJiraVars(config *Config) []string {
	var missingVars []string
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USER_NAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_API_TOKEN")
	}
	return missingVars
}

func missingSlackVars(config *Config) []string {
	var missingVars []string
	if config.Slack.Token == "" {
		missingVars = append(missingVars, "SLACK_BOT_TOKEN")
	}
	return missingVars
}

func validateJiraURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid JIRA_URL %q: expected an absolute http(s) URL", raw)
	}
	return nil
}
