package jenkins

import (
	"context"
	"fmt"
	"strings"

	"ci-deployer/src/apperr"
)

// JobDescriptor identifies a job by name, optional folder and optional
// branch (multibranch child). It is immutable once built by Resolve.
type JobDescriptor struct {
	name   string
	folder string
	branch string
	path   string
}

// Resolve builds the descriptor and its canonical resource path:
// job/<folder>/ (when folder is set), job/<name>, /job/<branch> (when branch
// is set).
func Resolve(name, folder, branch string) (JobDescriptor, error) {
	if name == "" {
		return JobDescriptor{}, fmt.Errorf("%w: job name is required", apperr.ErrConfiguration)
	}

	path := "job/" + name
	if folder != "" {
		path = "job/" + folder + "/" + path
	}
	if branch != "" {
		path += "/job/" + branch
	}

	return JobDescriptor{name: name, folder: folder, branch: branch, path: path}, nil
}

func (d JobDescriptor) Name() string   { return d.name }
func (d JobDescriptor) Folder() string { return d.folder }
func (d JobDescriptor) Branch() string { return d.branch }
func (d JobDescriptor) Path() string   { return d.path }

// LoadState tags whether a metadata slot may be read.
type LoadState int

const (
	Unloaded LoadState = iota
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load-failed"
	default:
		return "unloaded"
	}
}

// metadata holds a lazily fetched tree. It is never loaded implicitly: every
// read before a successful load fails with apperr.ErrNotLoaded.
type metadata struct {
	state LoadState
	tree  *Tree
}

func (m *metadata) load(ctx context.Context, f Fetcher, resourceURL string) error {
	tree, err := f.FetchTree(ctx, resourceURL)
	if err != nil {
		m.state, m.tree = LoadFailed, nil
		return err
	}
	if tree == nil {
		m.state, m.tree = LoadFailed, nil
		return fmt.Errorf("%w from %s: empty response", apperr.ErrLoad, APIURL(resourceURL))
	}
	m.state, m.tree = Loaded, tree
	return nil
}

func (m *metadata) get(resourceURL string) (*Tree, error) {
	if m.state != Loaded {
		return nil, fmt.Errorf("%w: %s (%s)", apperr.ErrNotLoaded, resourceURL, m.state)
	}
	return m.tree, nil
}

func (m *metadata) invalidate() {
	m.state, m.tree = Unloaded, nil
}

// Job is a JobDescriptor on a particular server together with its metadata.
type Job struct {
	Descriptor JobDescriptor
	url        string
	meta       metadata
}

// NewJob binds a descriptor to a server base URL. Nothing is fetched.
func NewJob(serverURL string, d JobDescriptor) *Job {
	return &Job{
		Descriptor: d,
		url:        strings.TrimRight(serverURL, "/") + "/" + d.Path(),
	}
}

// URL is the job's resource URL.
func (j *Job) URL() string {
	return j.url
}

// State reports whether metadata has been loaded.
func (j *Job) State() LoadState {
	return j.meta.state
}

// Load fetches the job metadata, replacing anything loaded before.
func (j *Job) Load(ctx context.Context, f Fetcher) error {
	return j.meta.load(ctx, f, j.url)
}

// Invalidate drops loaded metadata; the next read fails until Load succeeds.
func (j *Job) Invalidate() {
	j.meta.invalidate()
}

// Metadata returns the loaded tree.
func (j *Job) Metadata() (*Tree, error) {
	return j.meta.get(j.url)
}

// Element looks up path in the loaded metadata with GetElement semantics.
func (j *Job) Element(path string) (*Tree, bool, error) {
	tree, err := j.Metadata()
	if err != nil {
		return nil, false, err
	}
	v, ok := GetElement(tree, path)
	return v, ok, nil
}

// JobSummaryKeys are the metadata paths shown for a job.
var JobSummaryKeys = []string{
	"displayName",
	"fullName",
	"lastBuild/number",
	"lastCompletedBuild/number",
	"lastFailedBuild/number",
	"lastSuccessfulBuild/number",
}

// Field is one key/value line of a summary.
type Field struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Summary returns identity fields and, when loaded, JobSummaryKeys.
func (j *Job) Summary() []Field {
	fields := []Field{
		{Key: "name", Value: j.Descriptor.Name()},
		{Key: "folder", Value: j.Descriptor.Folder()},
		{Key: "branch", Value: j.Descriptor.Branch()},
	}
	tree, err := j.Metadata()
	if err != nil {
		return fields
	}
	for _, key := range JobSummaryKeys {
		fields = append(fields, Field{Key: key, Value: formatElement(tree, key)})
	}
	return fields
}

func formatElement(tree *Tree, path string) string {
	v, ok := GetElement(tree, path)
	if !ok {
		return "None"
	}
	return v.Format()
}
