// Package config provides configuration management for the deployer.
//
// Values come from environment variables, optionally backed by a YAML config
// file. Environment variables always win over the file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"ci-deployer/src/apperr"
)

// Config holds the application configuration.
type Config struct {
	// JenkinsURL is the base URL of the Jenkins server, e.g. https://ci.example.org/.
	JenkinsURL string
	// JenkinsUser and JenkinsToken authenticate API and artifact requests.
	JenkinsUser  string
	JenkinsToken string

	// RepoSSHUser and RepoIdentityFile are used for the package repository host.
	RepoSSHUser      string
	RepoIdentityFile string

	// RedpandaBrokers enables publishing deployment events when non-empty.
	RedpandaBrokers []string
	// PostgresDSN enables persistent deployment history when set.
	PostgresDSN string
	// PushgatewayURL enables pushing deployment metrics when set.
	PushgatewayURL string
}

// key -> environment variable
var envBindings = map[string]string{
	"jenkins_url":                "JENKINS_URL",
	"jenkins_user":               "ZANATA_JENKINS_USER",
	"jenkins_token":              "ZANATA_JENKINS_TOKEN",
	"rpm_repo_ssh_user":          "RPM_REPO_SSH_USER",
	"rpm_repo_ssh_identity_file": "RPM_REPO_SSH_IDENTITY_FILE",
	"redpanda_brokers":           "REDPANDA_BROKERS",
	"postgres_dsn":               "POSTGRES_DSN",
	"pushgateway_url":            "PUSHGATEWAY_URL",
}

// Load reads configuration from the environment and, when configFile is not
// empty, from that file. It does not validate required values.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: binding %s: %v", apperr.ErrConfiguration, env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", apperr.ErrConfiguration, configFile, err)
		}
	}

	return &Config{
		JenkinsURL:       v.GetString("jenkins_url"),
		JenkinsUser:      v.GetString("jenkins_user"),
		JenkinsToken:     v.GetString("jenkins_token"),
		RepoSSHUser:      v.GetString("rpm_repo_ssh_user"),
		RepoIdentityFile: v.GetString("rpm_repo_ssh_identity_file"),
		RedpandaBrokers:  splitList(v.GetString("redpanda_brokers")),
		PostgresDSN:      v.GetString("postgres_dsn"),
		PushgatewayURL:   v.GetString("pushgateway_url"),
	}, nil
}

// RequireJenkins fails with apperr.ErrConfiguration and
// apperr.ErrJenkinsSettings when any Jenkins connection parameter is missing.
func (c *Config) RequireJenkins() error {
	for _, req := range []struct{ env, value string }{
		{"JENKINS_URL", c.JenkinsURL},
		{"ZANATA_JENKINS_USER", c.JenkinsUser},
		{"ZANATA_JENKINS_TOKEN", c.JenkinsToken},
	} {
		if req.value == "" {
			return fmt.Errorf("%w: %w: missing environment '%s'", apperr.ErrConfiguration, apperr.ErrJenkinsSettings, req.env)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and requires the
// Jenkins connection parameters.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load("")
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireJenkins(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// REDPANDA_BROKERS may be a comma- or space-separated list.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
