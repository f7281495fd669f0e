// Package deploy runs the ordered sequence of remote operations that
// replaces a running application with a new artifact.
//
// A deployment moves Resolved -> Fetched -> Transferred -> Owned -> Swapped
// -> Restarted. The first failing operation aborts the run; nothing already
// done is undone, so a failure after the service stop leaves it stopped.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"

	"ci-deployer/src/apperr"
	"ci-deployer/src/contracts"
	"ci-deployer/src/logger"
)

// Target is the host being deployed to.
type Target interface {
	CopyTo(ctx context.Context, localPath, remotePath string, elevate, removeExisting bool) error
	SetOwner(ctx context.Context, user, group, remotePath string, elevate bool) error
	RunCommand(ctx context.Context, command string, elevate bool) ([]byte, error)
	String() string
}

// Downloader fetches an artifact URL to a local file.
type Downloader interface {
	Download(ctx context.Context, downloadURL, destPath string) error
}

// Settings are the host-side layout of the application.
type Settings struct {
	// StagingPath holds the uploaded artifact; LivePath is a symlink to it.
	StagingPath string
	LivePath    string
	Service     string
	Owner       string
	Group       string
	DownloadDir string
	RemoveOld   bool
	StepTimeout time.Duration
}

// DefaultSettings returns the layout of a standard EAP 7 host.
func DefaultSettings() Settings {
	return Settings{
		StagingPath: "/usr/local/share/applications/zanata.war",
		LivePath:    "/var/opt/rh/eap7/lib/wildfly/standalone/deployments/zanata.war",
		Service:     "eap7-standalone",
		Owner:       "jboss",
		Group:       "jboss",
		DownloadDir: os.TempDir(),
		RemoveOld:   true,
		StepTimeout: 10 * time.Minute,
	}
}

// Request is one deployment. Exactly one of DownloadURL and LocalPath is
// used; LocalPath wins when both are set.
type Request struct {
	DownloadURL string
	LocalPath   string
	JobPath     string
	BuildNumber int
}

// Result reports how far a deployment got. It is returned on failure too.
type Result struct {
	ID        string
	State     State
	LocalPath string
}

// Orchestrator drives a Target through the deployment states.
type Orchestrator struct {
	target     Target
	downloader Downloader
	settings   Settings
	log        logger.Logger
	observers  []Observer
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. downloader may be nil when only
// local artifacts are deployed.
func NewOrchestrator(target Target, downloader Downloader, settings Settings, log logger.Logger, observers ...Observer) *Orchestrator {
	return &Orchestrator{
		target:     target,
		downloader: downloader,
		settings:   settings,
		log:        log,
		observers:  observers,
		now:        time.Now,
	}
}

// operation is a single remote call within a transition.
type operation struct {
	step     string
	resource string
	run      func(ctx context.Context) error
}

type transition struct {
	to  State
	ops []operation
}

// Deploy fetches the artifact and swaps it in on the target.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Result, error) {
	s := o.settings
	result := &Result{ID: uuid.NewString(), State: Resolved}

	record := contracts.Deployment{
		ID:          result.ID,
		JobPath:     req.JobPath,
		BuildNumber: req.BuildNumber,
		ArtifactURL: req.DownloadURL,
		LocalPath:   req.LocalPath,
		Host:        o.target.String(),
		State:       Resolved.String(),
		Status:      contracts.StatusRunning,
		StartedAt:   o.now(),
	}
	for _, obs := range o.observers {
		obs.Started(ctx, record)
	}

	transitions := []transition{
		{to: Fetched, ops: []operation{o.fetchOperation(req, result)}},
		{to: Transferred, ops: []operation{{
			step:     "transfer",
			resource: s.StagingPath,
			run: func(ctx context.Context) error {
				return o.target.CopyTo(ctx, result.LocalPath, s.StagingPath, true, s.RemoveOld)
			},
		}}},
		{to: Owned, ops: []operation{o.chown(s.StagingPath)}},
		{to: Swapped, ops: []operation{
			o.command("stop", s.Service, "systemctl", "stop", s.Service),
			o.command("repoint", s.LivePath, "ln", "-sfn", s.StagingPath, s.LivePath),
			o.chown(s.LivePath),
		}},
		{to: Restarted, ops: []operation{
			o.command("start", s.Service, "systemctl", "start", s.Service),
		}},
	}

	var err error
	for _, tr := range transitions {
		if err = o.runTransition(ctx, result, tr); err != nil {
			break
		}
	}

	finished := o.now()
	record.State = result.State.String()
	record.FinishedAt = &finished
	if err != nil {
		record.Status = contracts.StatusFailed
		record.Error = err.Error()
		o.log.Error("Deployment %s stopped in state %s: %v", result.ID, result.State, err)
	} else {
		record.Status = contracts.StatusSucceeded
		o.log.Info("Deployment %s to %s completed", result.ID, o.target)
	}
	for _, obs := range o.observers {
		obs.Finished(ctx, record)
	}

	return result, err
}

func (o *Orchestrator) runTransition(ctx context.Context, result *Result, tr transition) error {
	o.log.Info("%s: %s -> %s", tr.to.Transition(), result.State, tr.to)
	for _, op := range tr.ops {
		if err := o.runOperation(ctx, op); err != nil {
			o.notify(ctx, Event{
				DeploymentID: result.ID,
				From:         result.State,
				To:           tr.to,
				Step:         op.step,
				Resource:     op.resource,
				Err:          err,
				Time:         o.now(),
			})
			return err
		}
	}

	from := result.State
	result.State = tr.to
	o.notify(ctx, Event{
		DeploymentID: result.ID,
		From:         from,
		To:           tr.to,
		Step:         tr.to.Transition(),
		Time:         o.now(),
	})
	return nil
}

// runOperation bounds op by the step timeout and names it in the error.
func (o *Orchestrator) runOperation(ctx context.Context, op operation) error {
	o.log.Debug("step %s %s", op.step, op.resource)
	stepCtx, cancel := context.WithTimeout(ctx, o.settings.StepTimeout)
	defer cancel()

	err := op.run(stepCtx)
	if err == nil {
		return nil
	}

	var stepErr *apperr.StepError
	if errors.As(err, &stepErr) {
		return err
	}
	if !classified(err) {
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", apperr.ErrRemoteTimeout, err)
		} else {
			err = fmt.Errorf("%w: %w", apperr.ErrRemoteOperation, err)
		}
	}
	return &apperr.StepError{Step: op.step, Resource: op.resource, Err: err}
}

// classified reports whether err already carries a taxonomy sentinel.
func classified(err error) bool {
	for _, sentinel := range []error{
		apperr.ErrRemoteOperation,
		apperr.ErrRemoteTimeout,
		apperr.ErrMissingArtifact,
		apperr.ErrConfiguration,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) notify(ctx context.Context, ev Event) {
	for _, obs := range o.observers {
		obs.Transition(ctx, ev)
	}
}

func (o *Orchestrator) fetchOperation(req Request, result *Result) operation {
	if req.LocalPath != "" {
		return operation{
			step:     "local",
			resource: req.LocalPath,
			run: func(ctx context.Context) error {
				if err := checkLocalArtifact(req.LocalPath); err != nil {
					return err
				}
				result.LocalPath = req.LocalPath
				return nil
			},
		}
	}
	return operation{
		step:     "download",
		resource: req.DownloadURL,
		run: func(ctx context.Context) error {
			dest, err := o.download(ctx, req.DownloadURL, "")
			if err != nil {
				return err
			}
			result.LocalPath = dest
			return nil
		},
	}
}

func (o *Orchestrator) chown(remotePath string) operation {
	s := o.settings
	return operation{
		step:     "chown",
		resource: remotePath,
		run: func(ctx context.Context) error {
			return o.target.SetOwner(ctx, s.Owner, s.Group, remotePath, true)
		},
	}
}

func (o *Orchestrator) command(step, resource string, args ...string) operation {
	cmd := shellescape.QuoteCommand(args)
	return operation{
		step:     step,
		resource: resource,
		run: func(ctx context.Context) error {
			_, err := o.target.RunCommand(ctx, cmd, true)
			return err
		},
	}
}

// Fetch downloads an artifact. dest may be a file, an existing directory or
// empty for the download directory. Returns the file written.
func (o *Orchestrator) Fetch(ctx context.Context, downloadURL, dest string) (string, error) {
	var written string
	err := o.runOperation(ctx, operation{
		step:     "download",
		resource: downloadURL,
		run: func(ctx context.Context) error {
			var err error
			written, err = o.download(ctx, downloadURL, dest)
			return err
		},
	})
	return written, err
}

func (o *Orchestrator) download(ctx context.Context, downloadURL, dest string) (string, error) {
	if o.downloader == nil {
		return "", fmt.Errorf("%w: no downloader configured", apperr.ErrConfiguration)
	}
	name, err := artifactFileName(downloadURL)
	if err != nil {
		return "", err
	}

	switch {
	case dest == "":
		dest = filepath.Join(o.settings.DownloadDir, name)
	default:
		if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
			dest = filepath.Join(dest, name)
		}
	}

	o.log.Info("Downloading %s to %s", downloadURL, dest)
	if err := o.downloader.Download(ctx, downloadURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CopyToServer uploads a local file to remotePath, optionally removing the
// old file first and changing the owner to "user[:group]" afterwards.
func (o *Orchestrator) CopyToServer(ctx context.Context, localPath, remotePath string, removeOld bool, owner string) error {
	err := o.runOperation(ctx, operation{
		step:     "transfer",
		resource: remotePath,
		run: func(ctx context.Context) error {
			if err := checkLocalArtifact(localPath); err != nil {
				return err
			}
			return o.target.CopyTo(ctx, localPath, remotePath, true, removeOld)
		},
	})
	if err != nil || owner == "" {
		return err
	}

	user, group := splitOwner(owner)
	return o.runOperation(ctx, operation{
		step:     "chown",
		resource: remotePath,
		run: func(ctx context.Context) error {
			return o.target.SetOwner(ctx, user, group, remotePath, true)
		},
	})
}

func checkLocalArtifact(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperr.ErrMissingArtifact, p, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", apperr.ErrMissingArtifact, p)
	}
	return nil
}

func artifactFileName(downloadURL string) (string, error) {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("%w: artifact url %q: %v", apperr.ErrConfiguration, downloadURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("%w: artifact url %q has no file name", apperr.ErrConfiguration, downloadURL)
	}
	return name, nil
}

func splitOwner(owner string) (string, string) {
	user, group, _ := strings.Cut(owner, ":")
	return user, group
}
