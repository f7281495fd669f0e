package jenkins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ci-deployer/src/apperr"
)

// fakeFetcher serves trees keyed by resource URL and counts calls.
type fakeFetcher struct {
	trees map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchTree(ctx context.Context, resourceURL string) (*Tree, error) {
	f.calls = append(f.calls, resourceURL)
	if err, ok := f.errs[resourceURL]; ok {
		return nil, err
	}
	doc, ok := f.trees[resourceURL]
	if !ok {
		return nil, fmt.Errorf("%w from %s: API request failed with status 404", apperr.ErrLoad, resourceURL)
	}
	return ParseTree([]byte(doc))
}

func TestResolve_PathComposition(t *testing.T) {
	for _, folder := range []string{"", "github-zanata-org"} {
		for _, branch := range []string{"", "master"} {
			t.Run(fmt.Sprintf("folder=%q branch=%q", folder, branch), func(t *testing.T) {
				d, err := Resolve("zanata-platform", folder, branch)
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				path := d.Path()

				if n := strings.Count(path, "job/zanata-platform"); n != 1 {
					t.Errorf("path %q contains job/<name> %d times, want 1", path, n)
				}
				hasFolder := strings.HasPrefix(path, "job/github-zanata-org/job/zanata-platform")
				if hasFolder != (folder != "") {
					t.Errorf("path %q folder prefix = %v, want %v", path, hasFolder, folder != "")
				}
				hasBranch := strings.HasSuffix(path, "job/zanata-platform/job/master")
				if hasBranch != (branch != "") {
					t.Errorf("path %q branch suffix = %v, want %v", path, hasBranch, branch != "")
				}
			})
		}
	}
}

func TestResolve_Exact(t *testing.T) {
	d, _ := Resolve("zanata-platform", "github-zanata-org", "master")
	if d.Path() != "job/github-zanata-org/job/zanata-platform/job/master" {
		t.Errorf("Path() = %q", d.Path())
	}
	if d.Name() != "zanata-platform" || d.Folder() != "github-zanata-org" || d.Branch() != "master" {
		t.Errorf("descriptor fields = %q %q %q", d.Name(), d.Folder(), d.Branch())
	}

	if _, err := Resolve("", "f", "b"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("Resolve(\"\") error = %v, want ErrConfiguration", err)
	}
}

func TestNewJob_URL(t *testing.T) {
	d, _ := Resolve("app", "", "")
	for _, base := range []string{"https://ci.example.org", "https://ci.example.org/"} {
		job := NewJob(base, d)
		if job.URL() != "https://ci.example.org/job/app" {
			t.Errorf("URL() = %q", job.URL())
		}
	}
}

func TestJob_NotLoaded(t *testing.T) {
	d, _ := Resolve("app", "", "")
	job := NewJob("https://ci/", d)

	if job.State() != Unloaded {
		t.Fatalf("State() = %v, want unloaded", job.State())
	}
	if _, err := job.Metadata(); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("Metadata() error = %v, want ErrNotLoaded", err)
	}
	if _, _, err := job.Element("displayName"); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("Element() error = %v, want ErrNotLoaded", err)
	}
	if _, err := job.LastSuccessfulBuild(); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("LastSuccessfulBuild() error = %v, want ErrNotLoaded", err)
	}
	if len(job.Summary()) != 3 {
		t.Errorf("Summary() of unloaded job should only carry identity fields")
	}
}

func TestJob_LoadReplacesAndInvalidates(t *testing.T) {
	d, _ := Resolve("app", "", "")
	job := NewJob("https://ci/", d)
	f := &fakeFetcher{trees: map[string]string{
		"https://ci/job/app": `{"displayName": "first"}`,
	}}

	if err := job.Load(context.Background(), f); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	v, ok, _ := job.Element("displayName")
	if s, _ := v.String(); !ok || s != "first" {
		t.Errorf("displayName = %q", s)
	}

	f.trees["https://ci/job/app"] = `{"fullName": "second"}`
	if err := job.Load(context.Background(), f); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok, _ := job.Element("displayName"); ok {
		t.Error("reload should replace metadata, not merge")
	}

	job.Invalidate()
	if _, err := job.Metadata(); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("Metadata() after Invalidate error = %v, want ErrNotLoaded", err)
	}
}

func TestJob_LoadFailure(t *testing.T) {
	d, _ := Resolve("app", "", "")
	job := NewJob("https://ci/", d)
	f := &fakeFetcher{errs: map[string]error{
		"https://ci/job/app": fmt.Errorf("%w: empty response", apperr.ErrLoad),
	}}

	if err := job.Load(context.Background(), f); !errors.Is(err, apperr.ErrLoad) {
		t.Fatalf("Load() error = %v, want ErrLoad", err)
	}
	if job.State() != LoadFailed {
		t.Errorf("State() = %v, want load-failed", job.State())
	}
	if _, err := job.Metadata(); !errors.Is(err, apperr.ErrNotLoaded) {
		t.Errorf("Metadata() error = %v, want ErrNotLoaded", err)
	}
	if _, err := job.LastSuccessfulBuild(); !errors.Is(err, apperr.ErrAssertion) {
		t.Errorf("LastSuccessfulBuild() error = %v, want ErrAssertion", err)
	}
}

func TestJob_Summary(t *testing.T) {
	d, _ := Resolve("app", "folder", "")
	job := NewJob("https://ci/", d)
	f := &fakeFetcher{trees: map[string]string{
		"https://ci/job/folder/job/app": `{"displayName": "App", "fullName": "folder/app", "lastBuild": {"number": 7}}`,
	}}
	if err := job.Load(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, field := range job.Summary() {
		got[field.Key] = field.Value
	}
	if got["folder"] != "folder" || got["fullName"] != "folder/app" || got["lastBuild/number"] != "7" {
		t.Errorf("Summary() = %v", got)
	}
	if got["lastSuccessfulBuild/number"] != "None" {
		t.Errorf("missing key should render None, got %q", got["lastSuccessfulBuild/number"])
	}
}
