package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"ci-deployer/src/apperr"
	"ci-deployer/src/deploy"
	"ci-deployer/src/jenkins"
	"ci-deployer/src/remote"
)

// jobFlags select a job inside folders and multibranch projects.
type jobFlags struct {
	folder string
	branch string
}

func (f *jobFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.folder, "folder", "F", "", "folder the job lives in")
	fs.StringVarP(&f.branch, "branch", "b", "", "branch of a multibranch job")
}

func (f *jobFlags) descriptor(args []string) (jenkins.JobDescriptor, error) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	return jenkins.Resolve(name, f.folder, f.branch)
}

type artifactFlags struct {
	patterns  []string
	localPath string
}

func (f *artifactFlags) register(fs *pflag.FlagSet, localUsage string) {
	fs.StringArrayVarP(&f.patterns, "pattern", "p", jenkins.DefaultPatterns,
		"artifact path regexp; repeat to try several in order")
	fs.StringVarP(&f.localPath, "local-path", "l", "", localUsage)
}

type sshFlags struct {
	host         string
	user         string
	identityFile string
}

func (f *sshFlags) register(fs *pflag.FlagSet, defaultHost string) {
	fs.StringVarP(&f.host, "host", "H", defaultHost, "host to connect to")
	fs.StringVarP(&f.user, "ssh-user", "u", "", "ssh login user")
	fs.StringVarP(&f.identityFile, "identity-file", "i", "", "ssh private key")
}

// newHost validates the flags and returns the target host. A bad identity
// file fails here rather than halfway through a deployment.
func (f *sshFlags) newHost() (*remote.Host, error) {
	if f.host == "" {
		return nil, fmt.Errorf("%w: --host is required", apperr.ErrConfiguration)
	}
	if f.identityFile != "" {
		fingerprint, err := remote.CheckIdentity(f.identityFile)
		if err != nil {
			return nil, err
		}
		log.Debug("Using identity %s (%s)", f.identityFile, fingerprint)
	}
	h := remote.NewHost(f.host, f.user, f.identityFile)
	h.Log = log
	return h, nil
}

// settingsFlags override the host-side application layout.
type settingsFlags struct {
	deploy.Settings
	owner string
}

func newSettingsFlags() *settingsFlags {
	s := deploy.DefaultSettings()
	return &settingsFlags{Settings: s, owner: s.Owner + ":" + s.Group}
}

func (f *settingsFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.StagingPath, "staging-path", f.StagingPath, "where the artifact is uploaded on the host")
	fs.StringVar(&f.LivePath, "live-path", f.LivePath, "symlink the service deploys from")
	fs.StringVar(&f.Service, "service", f.Service, "systemd unit to stop and start")
	fs.StringVar(&f.owner, "owner", f.owner, "user[:group] owning the deployed files")
	fs.StringVar(&f.DownloadDir, "download-dir", f.DownloadDir, "local directory for downloaded artifacts")
	fs.BoolVar(&f.RemoveOld, "rm-old", f.RemoveOld, "remove the old artifact before uploading")
	fs.DurationVar(&f.StepTimeout, "step-timeout", f.StepTimeout, "timeout for each remote operation")
}

func (f *settingsFlags) settings() (deploy.Settings, error) {
	s := f.Settings
	s.Owner, s.Group = splitOwner(f.owner)
	if s.Owner == "" {
		return s, fmt.Errorf("%w: --owner must name a user", apperr.ErrConfiguration)
	}
	if s.StepTimeout <= 0 {
		s.StepTimeout = 10 * time.Minute
	}
	return s, nil
}

func splitOwner(owner string) (user, group string) {
	user, group, _ = strings.Cut(owner, ":")
	return user, group
}
