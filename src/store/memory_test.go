package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"ci-deployer/src/contracts"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)

func TestMemoryStore_CreateAndGetDeployment(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	d := &contracts.Deployment{
		ID:          "dep-1",
		JobPath:     "job/github-zanata-org/job/zanata-platform/job/master",
		BuildNumber: 42,
		Host:        "app.example.org",
		State:       "Resolved",
		Status:      contracts.StatusRunning,
		StartedAt:   time.Now(),
	}

	if err := store.CreateDeployment(ctx, d); err != nil {
		t.Fatalf("CreateDeployment failed: %v", err)
	}
	if err := store.CreateDeployment(ctx, d); err == nil {
		t.Error("Expected error creating duplicate deployment")
	}

	got, err := store.GetDeployment(ctx, "dep-1")
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if got.BuildNumber != 42 || got.Status != contracts.StatusRunning {
		t.Errorf("Unexpected deployment: %+v", got)
	}

	// Returned value is a copy
	got.Status = "mutated"
	again, _ := store.GetDeployment(ctx, "dep-1")
	if again.Status != contracts.StatusRunning {
		t.Errorf("Store returned a shared pointer")
	}
}

func TestMemoryStore_UpdateDeployment(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateDeployment(ctx, &contracts.Deployment{ID: "dep-1", Host: "h", State: "Resolved", Status: contracts.StatusRunning})

	finished := time.Now()
	err := store.UpdateDeployment(ctx, &contracts.Deployment{
		ID:         "dep-1",
		State:      "Owned",
		Status:     contracts.StatusFailed,
		Error:      "systemctl stop failed",
		FinishedAt: &finished,
	})
	if err != nil {
		t.Fatalf("UpdateDeployment failed: %v", err)
	}

	got, _ := store.GetDeployment(ctx, "dep-1")
	if got.State != "Owned" || got.Status != contracts.StatusFailed || got.FinishedAt == nil {
		t.Errorf("Unexpected deployment after update: %+v", got)
	}
	if got.Host != "h" {
		t.Errorf("Update should not touch host, got %q", got.Host)
	}

	err = store.UpdateDeployment(ctx, &contracts.Deployment{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_GetDeploymentNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetDeployment(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListDeployments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.CreateDeployment(ctx, &contracts.Deployment{ID: "a", Host: "h1", StartedAt: base})
	store.CreateDeployment(ctx, &contracts.Deployment{ID: "b", Host: "h2", StartedAt: base.Add(time.Hour)})
	store.CreateDeployment(ctx, &contracts.Deployment{ID: "c", Host: "h1", StartedAt: base.Add(2 * time.Hour)})

	tests := []struct {
		name  string
		host  string
		limit int
		want  []string
	}{
		{name: "all hosts", host: "", limit: 0, want: []string{"c", "b", "a"}},
		{name: "one host", host: "h1", limit: 0, want: []string{"c", "a"}},
		{name: "limited", host: "", limit: 2, want: []string{"c", "b"}},
		{name: "unknown host", host: "h3", limit: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListDeployments(ctx, tt.host, tt.limit)
			if err != nil {
				t.Fatalf("ListDeployments failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d deployments, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestMemoryStore_Events(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.RecordEvent(ctx, &contracts.DeploymentEvent{DeploymentID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown deployment, got %v", err)
	}

	store.CreateDeployment(ctx, &contracts.Deployment{ID: "dep-1", Host: "h"})
	store.RecordEvent(ctx, &contracts.DeploymentEvent{DeploymentID: "dep-1", From: "Resolved", To: "Fetched", Step: "download"})
	store.RecordEvent(ctx, &contracts.DeploymentEvent{DeploymentID: "dep-1", From: "Fetched", To: "Transferred", Step: "transfer", Error: "boom"})

	events, err := store.GetEvents(ctx, "dep-1")
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Step != "download" || events[1].Step != "transfer" {
		t.Errorf("Events out of order: %+v", events)
	}
	if events[0].Failed() || !events[1].Failed() {
		t.Errorf("Unexpected Failed() values")
	}

	empty, _ := store.GetEvents(ctx, "other")
	if len(empty) != 0 {
		t.Errorf("Expected no events, got %d", len(empty))
	}
}
