package jenkins

import (
	"context"
	"fmt"
	"regexp"

	"ci-deployer/src/logger"
)

// ResolvedArtifact is the outcome of build resolution: the artifact to
// deploy and where it came from.
type ResolvedArtifact struct {
	Job         *Job
	Build       *Build
	Artifact    Artifact
	Matches     []Artifact
	DownloadURL string
}

// Resolver walks job -> last successful build -> artifacts. It is the one
// place that decides when metadata is loaded.
type Resolver struct {
	serverURL string
	fetcher   Fetcher
	log       logger.Logger
}

// NewResolver creates a resolver against serverURL.
func NewResolver(serverURL string, fetcher Fetcher, log logger.Logger) *Resolver {
	return &Resolver{serverURL: serverURL, fetcher: fetcher, log: log}
}

// LoadJob builds and loads a job.
func (r *Resolver) LoadJob(ctx context.Context, d JobDescriptor) (*Job, error) {
	job := NewJob(r.serverURL, d)
	r.log.Info("Loading job from %s", APIURL(job.URL()))
	if err := job.Load(ctx, r.fetcher); err != nil {
		return job, err
	}
	return job, nil
}

// LastSuccessfulBuild loads the job and its last successful build.
func (r *Resolver) LastSuccessfulBuild(ctx context.Context, d JobDescriptor) (*Job, *Build, error) {
	job, err := r.LoadJob(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	build, err := job.LastSuccessfulBuild()
	if err != nil {
		return job, nil, err
	}
	r.log.Info("Loading build #%d from %s", build.Descriptor.Number, APIURL(build.URL()))
	if err := build.Load(ctx, r.fetcher); err != nil {
		return job, build, err
	}
	return job, build, nil
}

// ResolveArtifact returns the first artifact of the last successful build
// matching patterns (first non-empty pattern wins).
func (r *Resolver) ResolveArtifact(ctx context.Context, d JobDescriptor, patterns []*regexp.Regexp) (*ResolvedArtifact, error) {
	job, build, err := r.LastSuccessfulBuild(ctx, d)
	if err != nil {
		return nil, err
	}

	artifacts, err := build.Artifacts()
	if err != nil {
		return nil, err
	}
	matches, err := MatchArtifacts(artifacts, patterns)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", build.URL(), err)
	}

	chosen := matches[0]
	if len(matches) > 1 {
		r.log.Debug("%d artifacts matched, using %s", len(matches), chosen.RelativePath)
	}

	return &ResolvedArtifact{
		Job:         job,
		Build:       build,
		Artifact:    chosen,
		Matches:     matches,
		DownloadURL: build.ArtifactURL(chosen.RelativePath),
	}, nil
}
