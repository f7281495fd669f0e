package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ci-deployer/src/contracts"
	"ci-deployer/src/deploy"
)

// StartedMsg, TransitionMsg and FinishedMsg mirror deploy.Observer calls.
type StartedMsg struct{ Deployment contracts.Deployment }

type TransitionMsg struct{ Event deploy.Event }

type FinishedMsg struct{ Deployment contracts.Deployment }

type stepStatus int

const (
	stepPending stepStatus = iota
	stepRunning
	stepDone
	stepFailed
)

type stepRow struct {
	state  deploy.State
	status stepStatus
	detail string
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "abort"),
	),
}

// DeployModel shows one deployment's progress through its steps.
type DeployModel struct {
	title    string
	spinner  spinner.Model
	steps    []stepRow
	styles   *StyleConfig
	cancel   context.CancelFunc
	width    int
	aborting bool
	finished bool
	result   contracts.Deployment
}

// NewDeployModel creates the view. cancel, if set, is called when the user
// aborts; the model keeps running until the deployment reports Finished.
func NewDeployModel(title string, cancel context.CancelFunc) DeployModel {
	s := DefaultStyles()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.statusStyle(s.Spinner)

	steps := make([]stepRow, len(deploy.Steps))
	for i, st := range deploy.Steps {
		steps[i] = stepRow{state: st}
	}
	steps[0].status = stepRunning

	return DeployModel{
		title:   title,
		spinner: sp,
		steps:   steps,
		styles:  s,
		cancel:  cancel,
		width:   80,
	}
}

func (m DeployModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m DeployModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.aborting {
			m.aborting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	case StartedMsg:
		if m.title == "" {
			m.title = fmt.Sprintf("Deploying to %s", msg.Deployment.Host)
		}
	case TransitionMsg:
		m.applyEvent(msg.Event)
	case FinishedMsg:
		m.finished = true
		m.result = msg.Deployment
		for i := range m.steps {
			if m.steps[i].status == stepRunning {
				m.steps[i].status = stepPending
			}
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *DeployModel) applyEvent(ev deploy.Event) {
	for i := range m.steps {
		if m.steps[i].state != ev.To {
			continue
		}
		if ev.Err != nil {
			m.steps[i].status = stepFailed
			m.steps[i].detail = ev.Err.Error()
			return
		}
		m.steps[i].status = stepDone
		if i+1 < len(m.steps) {
			m.steps[i+1].status = stepRunning
		}
		return
	}
}

func (m DeployModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.TitleStyle().Render(m.title))
	b.WriteString("\n\n")

	done := m.styles.statusStyle(m.styles.Success)
	failed := m.styles.statusStyle(m.styles.Failure)
	pending := m.styles.statusStyle(m.styles.TextSecondary)

	for _, row := range m.steps {
		var marker string
		switch row.status {
		case stepDone:
			marker = done.Render("✓")
		case stepFailed:
			marker = failed.Render("✗")
		case stepRunning:
			marker = m.spinner.View()
		default:
			marker = pending.Render("·")
		}
		fmt.Fprintf(&b, " %s %s %s\n", marker, PadRight(row.state.Transition(), 10), pending.Render(row.state.String()))
		if row.detail != "" {
			detail := Wrap(row.detail, max(m.width-6, 20))
			b.WriteString(lipgloss.NewStyle().PaddingLeft(5).Foreground(m.styles.Failure).Render(detail))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.finished && m.result.Status == contracts.StatusSucceeded:
		b.WriteString(done.Render("✓ Deployment complete"))
	case m.finished:
		b.WriteString(failed.Render(fmt.Sprintf("✗ Deployment stopped in state %s", m.result.State)))
	case m.aborting:
		b.WriteString(m.styles.HelpStyle().Render("Aborting after the current step..."))
	default:
		b.WriteString(m.styles.HelpStyle().Render(keys.Quit.Help().Key + " " + keys.Quit.Help().Desc))
	}
	b.WriteString("\n")
	return b.String()
}

// Result returns the finished deployment record, if any.
func (m DeployModel) Result() (contracts.Deployment, bool) {
	return m.result, m.finished
}
