// Package store persists deployment history.
package store

import (
	"context"
	"errors"

	"ci-deployer/src/contracts"
)

// ErrNotFound is returned when a deployment id is unknown.
var ErrNotFound = errors.New("deployment not found")

// Store defines the interface for persisting deployments and their events.
type Store interface {
	// CreateDeployment records a new deployment.
	CreateDeployment(ctx context.Context, d *contracts.Deployment) error

	// UpdateDeployment replaces state, status, error and finish time.
	UpdateDeployment(ctx context.Context, d *contracts.Deployment) error

	// GetDeployment returns one deployment.
	GetDeployment(ctx context.Context, id string) (*contracts.Deployment, error)

	// ListDeployments returns the most recent deployments, newest first.
	// An empty host matches every host; limit <= 0 means no limit.
	ListDeployments(ctx context.Context, host string, limit int) ([]contracts.Deployment, error)

	// RecordEvent appends a transition to a deployment's journal.
	RecordEvent(ctx context.Context, ev *contracts.DeploymentEvent) error

	// GetEvents returns a deployment's journal in order.
	GetEvents(ctx context.Context, deploymentID string) ([]contracts.DeploymentEvent, error)

	// Close closes the store connection
	Close() error
}
