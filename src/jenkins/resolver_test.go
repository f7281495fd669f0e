package jenkins

import (
	"context"
	"errors"
	"testing"

	"ci-deployer/src/apperr"
	"ci-deployer/src/logger"
)

const (
	platformJobURL   = "https://ci.example.org/job/github-zanata-org/job/zanata-platform/job/master"
	platformBuildURL = "https://ci.example.org/job/github-zanata-org/job/zanata-platform/job/master/42/"
)

func platformFetcher() *fakeFetcher {
	return &fakeFetcher{trees: map[string]string{
		platformJobURL: `{
			"displayName": "master",
			"lastBuild": {"number": 44, "url": "https://ci.example.org/job/github-zanata-org/job/zanata-platform/job/master/44/"},
			"lastSuccessfulBuild": {"number": 42, "url": "` + platformBuildURL + `"}
		}`,
		platformBuildURL: `{
			"number": 42,
			"artifacts": [
				{"relativePath": "zanata-war/target/zanata-4.6.war"},
				{"relativePath": "other/file.txt"}
			]
		}`,
	}}
}

func TestResolver_ResolveArtifact(t *testing.T) {
	f := platformFetcher()
	r := NewResolver("https://ci.example.org/", f, logger.NewSilentLogger())
	d, _ := Resolve("zanata-platform", "github-zanata-org", "master")
	patterns, _ := CompilePatterns([]string{`zanata-war/.*\.war$`})

	resolved, err := r.ResolveArtifact(context.Background(), d, patterns)
	if err != nil {
		t.Fatalf("ResolveArtifact() error = %v", err)
	}

	if resolved.Build.Descriptor.Number != 42 {
		t.Errorf("build number = %d, want 42", resolved.Build.Descriptor.Number)
	}
	if len(resolved.Matches) != 1 || resolved.Matches[0].RelativePath != "zanata-war/target/zanata-4.6.war" {
		t.Errorf("matches = %v", resolved.Matches)
	}
	wantURL := platformBuildURL + "artifact/zanata-war/target/zanata-4.6.war"
	if resolved.DownloadURL != wantURL {
		t.Errorf("DownloadURL = %q, want %q", resolved.DownloadURL, wantURL)
	}
	if len(f.calls) != 2 || f.calls[0] != platformJobURL || f.calls[1] != platformBuildURL {
		t.Errorf("fetch calls = %v, want job then build, once each", f.calls)
	}
}

func TestResolver_ResolveArtifact_NoMatch(t *testing.T) {
	r := NewResolver("https://ci.example.org", platformFetcher(), logger.NewSilentLogger())
	d, _ := Resolve("zanata-platform", "github-zanata-org", "master")
	patterns, _ := CompilePatterns([]string{`\.rpm$`})

	_, err := r.ResolveArtifact(context.Background(), d, patterns)
	if !errors.Is(err, apperr.ErrNoArtifactMatch) {
		t.Errorf("error = %v, want ErrNoArtifactMatch", err)
	}
}

func TestResolver_JobLoadFails(t *testing.T) {
	r := NewResolver("https://ci.example.org", &fakeFetcher{}, logger.NewSilentLogger())
	d, _ := Resolve("missing", "", "")

	_, _, err := r.LastSuccessfulBuild(context.Background(), d)
	if !errors.Is(err, apperr.ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}
