// Package rpmrepo mirrors the published dnf/yum repository between its host
// and a local work directory.
package rpmrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ci-deployer/src/logger"
)

const (
	DefaultHost      = "fedorapeople.org"
	DefaultRemoteDir = "/srv/repos/Zanata_Team/zanata"
	DefaultTimeout   = 30 * time.Minute
)

// Syncer copies directory trees to and from a host.
type Syncer interface {
	Pull(ctx context.Context, remoteDir, localDir string, extraFlags ...string) error
	Push(ctx context.Context, localDir, remoteDir string, extraFlags ...string) error
}

// Repo is a remote repository directory and its local mirror.
type Repo struct {
	RemoteDir string
	LocalDir  string
	Timeout   time.Duration

	host Syncer
	log  logger.Logger
}

// DefaultLocalDir is the mirror location under the user cache directory.
func DefaultLocalDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "cideploy", "dnf", "zanata")
}

// New returns a Repo with the default remote layout.
func New(host Syncer, localDir string, log logger.Logger) *Repo {
	if localDir == "" {
		localDir = DefaultLocalDir()
	}
	return &Repo{
		RemoteDir: DefaultRemoteDir,
		LocalDir:  localDir,
		Timeout:   DefaultTimeout,
		host:      host,
		log:       log,
	}
}

// Pull makes the local directory an exact copy of the remote one.
func (r *Repo) Pull(ctx context.Context) error {
	if err := os.MkdirAll(r.LocalDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.LocalDir, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	r.log.Info("Pull from %s to %s", r.RemoteDir, r.LocalDir)
	return r.host.Pull(ctx, r.RemoteDir, r.LocalDir, "--delete")
}

// Push makes the remote directory an exact copy of the local one. An
// empty or missing local directory is refused, since --delete would wipe
// the published repository.
func (r *Repo) Push(ctx context.Context) error {
	entries, err := os.ReadDir(r.LocalDir)
	if err != nil {
		return fmt.Errorf("local repository %s: %w", r.LocalDir, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("local repository %s is empty; pull first", r.LocalDir)
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	r.log.Info("Push from %s to %s", r.LocalDir, r.RemoteDir)
	return r.host.Push(ctx, r.LocalDir, r.RemoteDir, "--delete")
}
