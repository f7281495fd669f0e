package remote

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ci-deployer/src/apperr"
)

func TestExecRunner_Success(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecRunner_FailureCarriesStderr(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo 'first' >&2; printf '\\033[31mPermission denied\\033[0m\\n' >&2; exit 3")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRemoteOperation)
	assert.NotErrorIs(t, err, apperr.ErrRemoteTimeout)
	assert.Contains(t, err.Error(), "Permission denied")
	assert.NotContains(t, err.Error(), "\x1b[")
}

func TestExecRunner_ErrorShowsQuotedCommand(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "exit 1", "ssh -o BatchMode=yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running sh -c 'exit 1' 'ssh -o BatchMode=yes'")
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "uptime", commandLine("uptime", nil))
	assert.Equal(t,
		"rsync -av -e 'ssh -i /keys/repo' /src/ host:/dest",
		commandLine("rsync", []string{"-av", "-e", "ssh -i /keys/repo", "/src/", "host:/dest"}))
}

func TestExecRunner_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ExecRunner{}.Run(ctx, "sleep", "5")
	assert.ErrorIs(t, err, apperr.ErrRemoteTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_Env(t *testing.T) {
	out, err := ExecRunner{Env: []string{"CIDEPLOY_TEST=yes"}}.Run(context.Background(), "sh", "-c", "echo $CIDEPLOY_TEST")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", string(out))
}

func TestFindErrorMessage(t *testing.T) {
	assert.Equal(t, "", findErrorMessage(bytes.NewBufferString("\n  \n")))
	assert.Equal(t, "last", findErrorMessage(bytes.NewBufferString("first\nlast\n\n")))
}
