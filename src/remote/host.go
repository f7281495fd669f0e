package remote

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"

	"ci-deployer/src/logger"
)

// Host is a deployment or repository target reached over SSH.
type Host struct {
	Address      string
	User         string
	IdentityFile string

	Runner Runner
	Log    logger.Logger
}

// NewHost returns a Host that shells out to the system ssh tools.
func NewHost(address, user, identityFile string) *Host {
	return &Host{
		Address:      address,
		User:         user,
		IdentityFile: identityFile,
		Runner:       ExecRunner{},
		Log:          logger.NewSilentLogger(),
	}
}

func (h *Host) String() string {
	return h.login()
}

func (h *Host) login() string {
	if h.User == "" {
		return h.Address
	}
	return h.User + "@" + h.Address
}

func (h *Host) sshOptions() []string {
	var opts []string
	if h.IdentityFile != "" {
		opts = append(opts, "-i", h.IdentityFile)
	}
	return append(opts, "-o", "BatchMode=yes")
}

// RunCommand runs command on the host through the login shell. command is
// passed verbatim; callers quote their arguments. With elevate the command
// runs under non-interactive sudo.
func (h *Host) RunCommand(ctx context.Context, command string, elevate bool) ([]byte, error) {
	if elevate {
		command = "sudo -n " + command
	}
	h.Log.Debug("ssh %s %s", h.login(), command)
	args := append(h.sshOptions(), h.login(), command)
	return h.Runner.Run(ctx, "ssh", args...)
}

// CopyTo copies a local file to remotePath. With removeExisting the remote
// file is deleted first. With elevate the file is uploaded to a unique name
// under /tmp and moved into place with sudo, so remotePath may live in a
// directory the SSH user cannot write.
func (h *Host) CopyTo(ctx context.Context, localPath, remotePath string, elevate, removeExisting bool) error {
	if removeExisting {
		if _, err := h.RunCommand(ctx, shellescape.QuoteCommand([]string{"rm", "-f", remotePath}), elevate); err != nil {
			return fmt.Errorf("remove %s:%s: %w", h.Address, remotePath, err)
		}
	}

	upload := remotePath
	if elevate {
		upload = fmt.Sprintf("/tmp/%s.%s", path.Base(remotePath), uuid.NewString())
	}

	h.Log.Info("Copying %s to %s:%s", localPath, h.Address, remotePath)
	args := append(h.sshOptions(), "-q", localPath, h.login()+":"+shellescape.Quote(upload))
	if _, err := h.Runner.Run(ctx, "scp", args...); err != nil {
		return fmt.Errorf("copy %s to %s:%s: %w", localPath, h.Address, upload, err)
	}

	if elevate {
		if _, err := h.RunCommand(ctx, shellescape.QuoteCommand([]string{"mv", "-f", upload, remotePath}), true); err != nil {
			return fmt.Errorf("move %s into %s:%s: %w", upload, h.Address, remotePath, err)
		}
	}
	return nil
}

// SetOwner changes the owner of path. Symlinks are changed themselves, not
// followed.
func (h *Host) SetOwner(ctx context.Context, user, group, remotePath string, elevate bool) error {
	owner := user
	if group != "" {
		owner += ":" + group
	}
	cmd := shellescape.QuoteCommand([]string{"chown", "-h", owner, remotePath})
	if _, err := h.RunCommand(ctx, cmd, elevate); err != nil {
		return fmt.Errorf("chown %s:%s: %w", h.Address, remotePath, err)
	}
	return nil
}

// Pull mirrors remoteDir into localDir with rsync.
func (h *Host) Pull(ctx context.Context, remoteDir, localDir string, extraFlags ...string) error {
	h.Log.Info("Pulling %s:%s to %s", h.Address, remoteDir, localDir)
	src := h.login() + ":" + withTrailingSlash(remoteDir)
	if _, err := h.Runner.Run(ctx, "rsync", h.rsyncArgs(extraFlags, src, localDir)...); err != nil {
		return fmt.Errorf("pull %s:%s: %w", h.Address, remoteDir, err)
	}
	return nil
}

// Push mirrors localDir into remoteDir with rsync.
func (h *Host) Push(ctx context.Context, localDir, remoteDir string, extraFlags ...string) error {
	h.Log.Info("Pushing %s to %s:%s", localDir, h.Address, remoteDir)
	dest := h.login() + ":" + remoteDir
	if _, err := h.Runner.Run(ctx, "rsync", h.rsyncArgs(extraFlags, withTrailingSlash(localDir), dest)...); err != nil {
		return fmt.Errorf("push %s:%s: %w", h.Address, remoteDir, err)
	}
	return nil
}

func (h *Host) rsyncArgs(extraFlags []string, src, dest string) []string {
	shell := shellescape.QuoteCommand(append([]string{"ssh"}, h.sshOptions()...))
	args := []string{"-av"}
	args = append(args, extraFlags...)
	return append(args, "-e", shell, src, dest)
}

func withTrailingSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}
