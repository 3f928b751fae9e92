// Package secrets defines the secret store contract spec.md leaves as an
// interface: the catalog core persists a pointer to where a warehouse's
// storage credentials live, never the credentials themselves; a concrete
// backend (Vault, KMS, a database table) is out of scope per spec.md's
// Non-goals. This package ships the contract plus an in-memory
// implementation for tests.
package secrets

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// Store is the secret persistence contract.
type Store interface {
	// GetSecretByID returns the raw secret bytes for id.
	GetSecretByID(ctx context.Context, id string) ([]byte, error)
	// PersistSecret stores secret and returns the id it was stored under.
	PersistSecret(ctx context.Context, secret []byte) (string, error)
	// DeleteSecret removes a previously persisted secret. Deleting a
	// nonexistent id is not an error: the task queue's cleanup path may
	// race with a direct delete and both outcomes are equally terminal.
	DeleteSecret(ctx context.Context, id string) error
}

// InMemoryStore is a Store backed by a guarded map, for tests and
// single-node deployments that do not need encryption at rest.
type InMemoryStore struct {
	mu      sync.Mutex
	secrets map[string][]byte
}

// NewInMemoryStore builds an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{secrets: make(map[string][]byte)}
}

func (s *InMemoryStore) GetSecretByID(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.secrets[id]
	if !ok {
		return nil, perr.EntityNotFoundError{
			EntityType: "secret",
			Code:       "entity_not_found",
			Title:      "Secret Not Found",
			Message:    "No secret exists for the given id.",
			Reason:     perr.ReasonResourceNotFound,
		}
	}

	return v, nil
}

func (s *InMemoryStore) PersistSecret(_ context.Context, secret []byte) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[id] = append([]byte{}, secret...)

	return id, nil
}

func (s *InMemoryStore) DeleteSecret(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.secrets, id)

	return nil
}
