package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ci-deployer/src/apperr"
)

func setJenkinsEnv(t *testing.T, url, user, token string) {
	t.Helper()
	t.Setenv("JENKINS_URL", url)
	t.Setenv("ZANATA_JENKINS_USER", user)
	t.Setenv("ZANATA_JENKINS_TOKEN", token)
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("all values set", func(t *testing.T) {
		setJenkinsEnv(t, "https://jenkins.example.org/", "bot", "secret")
		t.Setenv("REDPANDA_BROKERS", "localhost:19092, localhost:19093")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.JenkinsURL != "https://jenkins.example.org/" {
			t.Errorf("JenkinsURL = %v", cfg.JenkinsURL)
		}
		if cfg.JenkinsUser != "bot" || cfg.JenkinsToken != "secret" {
			t.Errorf("credentials = %v/%v", cfg.JenkinsUser, cfg.JenkinsToken)
		}
		if len(cfg.RedpandaBrokers) != 2 || cfg.RedpandaBrokers[1] != "localhost:19093" {
			t.Errorf("RedpandaBrokers = %v", cfg.RedpandaBrokers)
		}
	})

	missing := []struct {
		name             string
		url, user, token string
		wantEnv          string
	}{
		{name: "missing url", user: "bot", token: "secret", wantEnv: "JENKINS_URL"},
		{name: "missing user", url: "https://j/", token: "secret", wantEnv: "ZANATA_JENKINS_USER"},
		{name: "missing token", url: "https://j/", user: "bot", wantEnv: "ZANATA_JENKINS_TOKEN"},
	}

	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			setJenkinsEnv(t, tt.url, tt.user, tt.token)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("LoadFromEnv() expected error, got nil")
			}
			if !errors.Is(err, apperr.ErrConfiguration) {
				t.Errorf("error = %v, want ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantEnv) {
				t.Errorf("error %q should name %s", err, tt.wantEnv)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	setJenkinsEnv(t, "", "", "")
	t.Setenv("ZANATA_JENKINS_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "cideploy.yaml")
	content := "jenkins_url: https://file.example.org/\njenkins_user: file-user\njenkins_token: from-file\npostgres_dsn: postgres://localhost/deploys\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JenkinsURL != "https://file.example.org/" {
		t.Errorf("JenkinsURL = %v", cfg.JenkinsURL)
	}
	if cfg.JenkinsToken != "from-env" {
		t.Errorf("JenkinsToken = %v, environment should win over file", cfg.JenkinsToken)
	}
	if cfg.PostgresDSN != "postgres://localhost/deploys" {
		t.Errorf("PostgresDSN = %v", cfg.PostgresDSN)
	}
	if err := cfg.RequireJenkins(); err != nil {
		t.Errorf("RequireJenkins() = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("Load() error = %v, want ErrConfiguration", err)
	}
}
