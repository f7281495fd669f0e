package jenkins

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ci-deployer/src/apperr"
)

// BuildDescriptor identifies one numbered build of a job. It refers to its
// job by path only.
type BuildDescriptor struct {
	JobPath string
	Number  int
	URL     string
}

// Build is a BuildDescriptor together with its metadata.
type Build struct {
	Descriptor BuildDescriptor
	meta       metadata
}

// NewBuild creates an unloaded build.
func NewBuild(d BuildDescriptor) *Build {
	return &Build{Descriptor: d}
}

// LastSuccessfulBuild follows the job's lastSuccessfulBuild pointer, which
// is not necessarily the highest build number.
func (j *Job) LastSuccessfulBuild() (*Build, error) {
	switch j.meta.state {
	case Unloaded:
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotLoaded, j.url)
	case LoadFailed:
		return nil, fmt.Errorf("%w: failed to load job from %s", apperr.ErrAssertion, j.url)
	}

	tree := j.meta.tree
	numberNode, ok := GetElement(tree, "lastSuccessfulBuild/number")
	if !ok {
		return nil, fmt.Errorf("%w: %s has no lastSuccessfulBuild", apperr.ErrNoSuchBuild, j.Descriptor.Path())
	}
	number, ok := numberNode.Int()
	if !ok {
		return nil, fmt.Errorf("%w: %s lastSuccessfulBuild number %q is not an integer", apperr.ErrNoSuchBuild, j.Descriptor.Path(), numberNode.Format())
	}
	urlNode, ok := GetElement(tree, "lastSuccessfulBuild/url")
	if !ok {
		return nil, fmt.Errorf("%w: %s lastSuccessfulBuild #%d has no url", apperr.ErrNoSuchBuild, j.Descriptor.Path(), number)
	}
	url, ok := urlNode.String()
	if !ok {
		return nil, fmt.Errorf("%w: %s lastSuccessfulBuild #%d url %q is not a string", apperr.ErrNoSuchBuild, j.Descriptor.Path(), number, urlNode.Format())
	}

	return NewBuild(BuildDescriptor{
		JobPath: j.Descriptor.Path(),
		Number:  number,
		URL:     url,
	}), nil
}

// URL is the build's resource URL.
func (b *Build) URL() string {
	return b.Descriptor.URL
}

// State reports whether metadata has been loaded.
func (b *Build) State() LoadState {
	return b.meta.state
}

// Load fetches the build metadata, replacing anything loaded before.
func (b *Build) Load(ctx context.Context, f Fetcher) error {
	return b.meta.load(ctx, f, b.Descriptor.URL)
}

// Invalidate drops loaded metadata.
func (b *Build) Invalidate() {
	b.meta.invalidate()
}

// Metadata returns the loaded tree.
func (b *Build) Metadata() (*Tree, error) {
	return b.meta.get(b.Descriptor.URL)
}

// Element looks up path in the loaded metadata with GetElement semantics.
func (b *Build) Element(path string) (*Tree, bool, error) {
	tree, err := b.Metadata()
	if err != nil {
		return nil, false, err
	}
	v, ok := GetElement(tree, path)
	return v, ok, nil
}

// Artifact is a file produced by a build, addressed relative to the build's
// artifact root.
type Artifact struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	FileName     string `json:"fileName,omitempty" yaml:"fileName,omitempty"`
}

// Artifacts lists the build's artifacts in server order. Entries whose
// relativePath is missing or empty are skipped.
func (b *Build) Artifacts() ([]Artifact, error) {
	tree, err := b.Metadata()
	if err != nil {
		return nil, err
	}
	list, ok := GetElement(tree, "artifacts")
	if !ok {
		return []Artifact{}, nil
	}

	artifacts := make([]Artifact, 0)
	for _, entry := range list.List() {
		pathNode, ok := GetElement(entry, "relativePath")
		if !ok {
			continue
		}
		path, ok := pathNode.String()
		if !ok {
			continue
		}
		a := Artifact{RelativePath: path}
		if name, ok := GetElement(entry, "fileName"); ok {
			a.FileName, _ = name.String()
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// ArtifactURL returns the download URL of a relative artifact path.
func (b *Build) ArtifactURL(relativePath string) string {
	return strings.TrimRight(b.Descriptor.URL, "/") + "/artifact/" + relativePath
}

// Summary returns number and URL and, when loaded, the neighbouring build
// numbers and the artifact list.
func (b *Build) Summary() []Field {
	fields := []Field{
		{Key: "number", Value: strconv.Itoa(b.Descriptor.Number)},
		{Key: "url", Value: b.Descriptor.URL},
	}
	tree, err := b.Metadata()
	if err != nil {
		return fields
	}
	for _, key := range []string{"nextBuild/number", "previousBuild/number"} {
		fields = append(fields, Field{Key: key, Value: formatElement(tree, key)})
	}
	artifacts, _ := b.Artifacts()
	for i, a := range artifacts {
		fields = append(fields, Field{Key: fmt.Sprintf("artifacts/%d", i), Value: a.RelativePath})
	}
	return fields
}
