// Package contracts defines the records shared between the deployment
// orchestrator, the history store and the event stream.
package contracts

import "time"

// DeployEventsTopic carries one DeploymentEvent per orchestrator transition.
// Key: {deployment_id}
const DeployEventsTopic = "cideploy.deploy.events"

// Deployment statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Deployment is the history record of one deploy invocation.
type Deployment struct {
	ID          string `json:"id" yaml:"id"`
	JobPath     string `json:"job_path,omitempty" yaml:"job_path,omitempty"`
	BuildNumber int    `json:"build_number,omitempty" yaml:"build_number,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty" yaml:"artifact_url,omitempty"`
	LocalPath   string `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	Host        string `json:"host" yaml:"host"`
	// Last state the orchestrator reached.
	State  string `json:"state" yaml:"state"`
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// DeploymentEvent is one state transition, or a failed attempt at one.
// Published to: cideploy.deploy.events
type DeploymentEvent struct {
	DeploymentID string    `json:"deployment_id" yaml:"deployment_id"`
	From         string    `json:"from" yaml:"from"`
	To           string    `json:"to" yaml:"to"`
	Step         string    `json:"step" yaml:"step"`
	Resource     string    `json:"resource,omitempty" yaml:"resource,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

// Failed reports whether the transition did not complete.
func (e DeploymentEvent) Failed() bool {
	return e.Error != ""
}
