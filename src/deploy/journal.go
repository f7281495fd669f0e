package deploy

import (
	"context"
	"time"

	"ci-deployer/src/broker"
	"ci-deployer/src/contracts"
	"ci-deployer/src/logger"
	"ci-deployer/src/store"
)

// Bounds each event publish. Publishing outlives the deployment's own
// context so the failure of an aborted deployment still reaches followers.
const publishTimeout = 5 * time.Second

// Journal records deployments in a store and publishes their transitions.
// Either sink may be nil. Journal failures are logged; they never change
// the outcome of a deployment.
type Journal struct {
	store  store.Store
	broker broker.Broker
	log    logger.Logger
}

// NewJournal creates a Journal.
func NewJournal(st store.Store, b broker.Broker, log logger.Logger) *Journal {
	return &Journal{store: st, broker: b, log: log}
}

func (j *Journal) Started(ctx context.Context, d contracts.Deployment) {
	if j.store == nil {
		return
	}
	if err := j.store.CreateDeployment(ctx, &d); err != nil {
		j.log.Error("Failed to record deployment %s: %v", d.ID, err)
	}
}

func (j *Journal) Transition(ctx context.Context, ev Event) {
	rec := ev.Record()
	ctx = context.WithoutCancel(ctx)
	if j.store != nil {
		if err := j.store.RecordEvent(ctx, &rec); err != nil {
			j.log.Error("Failed to record %s event for %s: %v", rec.Step, rec.DeploymentID, err)
		}
	}
	if j.broker != nil {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := broker.PublishJSON(ctx, j.broker, contracts.DeployEventsTopic, rec.DeploymentID, rec); err != nil {
			j.log.Error("Failed to publish %s event for %s: %v", rec.Step, rec.DeploymentID, err)
		}
	}
}

// Finished records the outcome even when ctx was cancelled, which is how
// an aborted deployment ends.
func (j *Journal) Finished(ctx context.Context, d contracts.Deployment) {
	if j.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := j.store.UpdateDeployment(ctx, &d); err != nil {
		j.log.Error("Failed to update deployment %s: %v", d.ID, err)
	}
}
