package deploy

import (
	"context"
	"time"

	"ci-deployer/src/contracts"
)

// State is how far a deployment has progressed. States only move forward.
type State int

const (
	Resolved State = iota
	Fetched
	Transferred
	Owned
	Swapped
	Restarted
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "Resolved"
	case Fetched:
		return "Fetched"
	case Transferred:
		return "Transferred"
	case Owned:
		return "Owned"
	case Swapped:
		return "Swapped"
	case Restarted:
		return "Restarted"
	default:
		return "Unknown"
	}
}

// Transition names the step that moves a deployment into s.
func (s State) Transition() string {
	switch s {
	case Fetched:
		return "fetch"
	case Transferred:
		return "transfer"
	case Owned:
		return "own"
	case Swapped:
		return "swap"
	case Restarted:
		return "restart"
	default:
		return ""
	}
}

// Steps lists the states a deployment passes through after Resolved.
var Steps = []State{Fetched, Transferred, Owned, Swapped, Restarted}

// Event describes one transition attempt. Err is set when it failed, in
// which case the deployment stays in From.
type Event struct {
	DeploymentID string
	From         State
	To           State
	Step         string
	Resource     string
	Err          error
	Time         time.Time
}

// Record converts the event to its stored form.
func (e Event) Record() contracts.DeploymentEvent {
	rec := contracts.DeploymentEvent{
		DeploymentID: e.DeploymentID,
		From:         e.From.String(),
		To:           e.To.String(),
		Step:         e.Step,
		Resource:     e.Resource,
		Timestamp:    e.Time,
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	return rec
}

// Observer is told about every deployment as it runs. Observers must not
// block for long; they run inline between steps.
type Observer interface {
	Started(ctx context.Context, d contracts.Deployment)
	Transition(ctx context.Context, ev Event)
	Finished(ctx context.Context, d contracts.Deployment)
}
