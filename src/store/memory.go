package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ci-deployer/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Used when no database is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	deployments map[string]*contracts.Deployment
	events      map[string][]contracts.DeploymentEvent
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deployments: make(map[string]*contracts.Deployment),
		events:      make(map[string][]contracts.DeploymentEvent),
	}
}

// CreateDeployment records a new deployment.
func (s *MemoryStore) CreateDeployment(ctx context.Context, d *contracts.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.deployments[d.ID]; exists {
		return fmt.Errorf("deployment already exists: %s", d.ID)
	}
	c := *d
	s.deployments[d.ID] = &c
	return nil
}

// UpdateDeployment replaces the mutable fields of a deployment.
func (s *MemoryStore) UpdateDeployment(ctx context.Context, d *contracts.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.deployments[d.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, d.ID)
	}
	existing.State = d.State
	existing.Status = d.Status
	existing.Error = d.Error
	existing.FinishedAt = d.FinishedAt
	return nil
}

// GetDeployment returns a copy of one deployment.
func (s *MemoryStore) GetDeployment(ctx context.Context, id string) (*contracts.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deployments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := *d
	return &c, nil
}

// ListDeployments returns deployments newest first.
func (s *MemoryStore) ListDeployments(ctx context.Context, host string, limit int) ([]contracts.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []contracts.Deployment{}
	for _, d := range s.deployments {
		if host == "" || d.Host == host {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// RecordEvent appends to the deployment's journal.
func (s *MemoryStore) RecordEvent(ctx context.Context, ev *contracts.DeploymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[ev.DeploymentID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ev.DeploymentID)
	}
	s.events[ev.DeploymentID] = append(s.events[ev.DeploymentID], *ev)
	return nil
}

// GetEvents returns a copy of the journal.
func (s *MemoryStore) GetEvents(ctx context.Context, deploymentID string) ([]contracts.DeploymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[deploymentID]
	result := make([]contracts.DeploymentEvent, len(events))
	copy(result, events)
	return result, nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
