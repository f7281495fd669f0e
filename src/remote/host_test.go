package remote

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ci-deployer/src/apperr"
)

// fakeRunner records command lines and fails any line containing a key of
// fail.
type fakeRunner struct {
	calls []string
	fail  map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := commandLine(name, args)
	f.calls = append(f.calls, line)
	for needle, err := range f.fail {
		if strings.Contains(line, needle) {
			return nil, err
		}
	}
	return nil, nil
}

func newTestHost(identity string) (*Host, *fakeRunner) {
	r := &fakeRunner{}
	h := NewHost("app.example.org", "deployer", identity)
	h.Runner = r
	return h, r
}

func TestHost_RunCommand(t *testing.T) {
	h, r := newTestHost("/home/deployer/.ssh/id_ed25519")

	_, err := h.RunCommand(context.Background(), "systemctl stop eap7-standalone", true)
	require.NoError(t, err)
	_, err = h.RunCommand(context.Background(), "uptime", false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ssh -i /home/deployer/.ssh/id_ed25519 -o BatchMode=yes deployer@app.example.org 'sudo -n systemctl stop eap7-standalone'",
		"ssh -i /home/deployer/.ssh/id_ed25519 -o BatchMode=yes deployer@app.example.org uptime",
	}, r.calls)
}

func TestHost_LoginWithoutUser(t *testing.T) {
	h, r := newTestHost("")
	h.User = ""

	_, err := h.RunCommand(context.Background(), "true", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ssh -o BatchMode=yes app.example.org true"}, r.calls)
	assert.Equal(t, "app.example.org", h.String())
}

func TestHost_CopyTo_Elevated(t *testing.T) {
	h, r := newTestHost("")

	err := h.CopyTo(context.Background(), "/tmp/zanata-4.6.war", "/usr/local/share/applications/zanata.war", true, true)
	require.NoError(t, err)
	require.Len(t, r.calls, 3)

	assert.Equal(t, "ssh -o BatchMode=yes deployer@app.example.org 'sudo -n rm -f /usr/local/share/applications/zanata.war'", r.calls[0])
	assert.True(t, strings.HasPrefix(r.calls[1], "scp -o BatchMode=yes -q /tmp/zanata-4.6.war deployer@app.example.org:/tmp/zanata.war."), r.calls[1])
	upload := strings.TrimPrefix(strings.Fields(r.calls[1])[5], "deployer@app.example.org:")
	assert.Equal(t, "ssh -o BatchMode=yes deployer@app.example.org 'sudo -n mv -f "+upload+" /usr/local/share/applications/zanata.war'", r.calls[2])
}

func TestHost_CopyTo_Plain(t *testing.T) {
	h, r := newTestHost("")

	err := h.CopyTo(context.Background(), "/tmp/a.war", "/home/deployer/a.war", false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"scp -o BatchMode=yes -q /tmp/a.war deployer@app.example.org:/home/deployer/a.war"}, r.calls)
}

func TestHost_CopyTo_RemoveFailureStops(t *testing.T) {
	h, r := newTestHost("")
	r.fail = map[string]error{"rm -f": fmt.Errorf("%w: permission denied", apperr.ErrRemoteOperation)}

	err := h.CopyTo(context.Background(), "/tmp/a.war", "/srv/a.war", true, true)
	assert.ErrorIs(t, err, apperr.ErrRemoteOperation)
	assert.Len(t, r.calls, 1)
}

func TestHost_SetOwner(t *testing.T) {
	h, r := newTestHost("")

	require.NoError(t, h.SetOwner(context.Background(), "jboss", "jboss", "/opt/app/zanata.war", true))
	require.NoError(t, h.SetOwner(context.Background(), "jboss", "", "/opt/app with space/zanata.war", false))

	assert.Equal(t, []string{
		"ssh -o BatchMode=yes deployer@app.example.org 'sudo -n chown -h jboss:jboss /opt/app/zanata.war'",
		`ssh -o BatchMode=yes deployer@app.example.org 'chown -h jboss '"'"'/opt/app with space/zanata.war'"'"''`,
	}, r.calls)
}

func TestHost_PullPush(t *testing.T) {
	h, r := newTestHost("/keys/repo")
	h.Address = "fedorapeople.org"

	require.NoError(t, h.Pull(context.Background(), "/srv/repos/Zanata_Team/zanata", "/work/repo", "--delete"))
	require.NoError(t, h.Push(context.Background(), "/work/repo", "/srv/repos/Zanata_Team/zanata", "--delete"))

	assert.Equal(t, []string{
		"rsync -av --delete -e 'ssh -i /keys/repo -o BatchMode=yes' deployer@fedorapeople.org:/srv/repos/Zanata_Team/zanata/ /work/repo",
		"rsync -av --delete -e 'ssh -i /keys/repo -o BatchMode=yes' /work/repo/ deployer@fedorapeople.org:/srv/repos/Zanata_Team/zanata",
	}, r.calls)
}

func TestHost_ErrorsKeepTaxonomy(t *testing.T) {
	h, r := newTestHost("")
	r.fail = map[string]error{"scp": fmt.Errorf("%w: deadline", apperr.ErrRemoteTimeout)}

	err := h.CopyTo(context.Background(), "/tmp/a.war", "/srv/a.war", false, false)
	assert.ErrorIs(t, err, apperr.ErrRemoteTimeout)
	assert.Contains(t, err.Error(), "copy /tmp/a.war to app.example.org:/srv/a.war")
}
