package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"ci-deployer/src/contracts"
	"ci-deployer/src/deploy"
)

// ProgramObserver forwards deployment progress to a running tea.Program.
type ProgramObserver struct {
	program *tea.Program
}

// NewProgramObserver creates a deploy.Observer for p.
func NewProgramObserver(p *tea.Program) *ProgramObserver {
	return &ProgramObserver{program: p}
}

func (o *ProgramObserver) Started(ctx context.Context, d contracts.Deployment) {
	o.program.Send(StartedMsg{Deployment: d})
}

func (o *ProgramObserver) Transition(ctx context.Context, ev deploy.Event) {
	o.program.Send(TransitionMsg{Event: ev})
}

func (o *ProgramObserver) Finished(ctx context.Context, d contracts.Deployment) {
	o.program.Send(FinishedMsg{Deployment: d})
}
