package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Holds settings that are awkward to express as env vars.
type YAMLConfig struct {
	SeedUsers            []SeedUserConfig           `yaml:"seed_users"`
	NotificationDefaults NotificationDefaultsConfig `yaml:"notification_defaults"`
}

// SeedUserConfig defines a user created on startup in development.
type SeedUserConfig struct {
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name,omitempty"`
	LastName  string `yaml:"last_name,omitempty"`
	Role      string `yaml:"role"` // STUDENT, REVIEWER, ADMIN
	Password  string `yaml:"password"`
}

// NotificationDefaultsConfig sets the preferences given to newly created users.
type NotificationDefaultsConfig struct {
	NotifyOnNewSubmission  *bool `yaml:"notify_on_new_submission,omitempty"`
	NotifyOnReviewDecision *bool `yaml:"notify_on_review_decision,omitempty"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	path := getEnv("CONFIG_FILE", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return ParseYAMLConfig(data)
}

// ParseYAMLConfig decodes raw YAML and fills in defaults.
func ParseYAMLConfig(data []byte) (*YAMLConfig, error) {
	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.SeedUsers {
		if cfg.SeedUsers[i].Role == "" {
			cfg.SeedUsers[i].Role = "STUDENT"
		}
	}

	return &cfg, nil
}

// NotifyDefaults returns the notification preferences for new users.
// Both default to true when unset, matching the column defaults.
func (c *YAMLConfig) NotifyDefaults() (onNewSubmission, onReviewDecision bool) {
	onNewSubmission, onReviewDecision = true, true
	if c == nil {
		return
	}
	if v := c.NotificationDefaults.NotifyOnNewSubmission; v != nil {
		onNewSubmission = *v
	}
	if v := c.NotificationDefaults.NotifyOnReviewDecision; v != nil {
		onReviewDecision = *v
	}
	return
}
