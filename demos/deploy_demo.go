// Demo program showing the deployment progress view against a simulated host.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"ci-deployer/src/apperr"
	"ci-deployer/src/deploy"
	"ci-deployer/src/logger"
	"ci-deployer/src/tui"
)

// simulatedHost sleeps instead of running anything and fails the command
// containing failOn, if set.
type simulatedHost struct {
	failOn string
}

func (h simulatedHost) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(400*time.Millisecond + time.Duration(rand.Intn(800))*time.Millisecond):
		return nil
	}
}

func (h simulatedHost) CopyTo(ctx context.Context, localPath, remotePath string, elevate, removeExisting bool) error {
	return h.pause(ctx)
}

func (h simulatedHost) SetOwner(ctx context.Context, user, group, remotePath string, elevate bool) error {
	return h.pause(ctx)
}

func (h simulatedHost) RunCommand(ctx context.Context, command string, elevate bool) ([]byte, error) {
	if err := h.pause(ctx); err != nil {
		return nil, err
	}
	if h.failOn != "" && strings.Contains(command, h.failOn) {
		return nil, fmt.Errorf("%w: %s: Job for eap7-standalone.service failed", apperr.ErrRemoteOperation, command)
	}
	return nil, nil
}

func (h simulatedHost) String() string { return "deployer@demo.example.org" }

func main() {
	failOn := pflag.String("fail-on", "", "fail the remote command containing this text, e.g. 'systemctl start'")
	pflag.Parse()

	war := filepath.Join(os.TempDir(), "zanata-demo.war")
	if err := os.WriteFile(war, []byte("demo"), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating demo artifact: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(war)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(tui.NewDeployModel("Deploying zanata-demo.war", cancel))
	o := deploy.NewOrchestrator(simulatedHost{failOn: *failOn}, nil, deploy.DefaultSettings(),
		logger.NewSilentLogger(), tui.NewProgramObserver(p))

	go o.Deploy(ctx, deploy.Request{LocalPath: war})

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
