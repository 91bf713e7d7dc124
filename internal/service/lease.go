package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LeaseRegistry hands out exclusive leases keyed by string, used to
// serialize matching passes per trading account and snapshot creation per
// (account, date). The underlying store transaction is still the source of
// atomicity; the lease makes the single-writer discipline explicit instead
// of relying on store-level locking alone.
type LeaseRegistry struct {
	mu     sync.Mutex
	leases map[string]*semaphore.Weighted
}

// NewLeaseRegistry creates an empty lease registry.
func NewLeaseRegistry() *LeaseRegistry {
	return &LeaseRegistry{leases: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until the exclusive lease for key is available or the
// context is cancelled. The returned release function must be called
// exactly once.
func (r *LeaseRegistry) Acquire(ctx context.Context, key string) (func(), error) {
	r.mu.Lock()
	sem, ok := r.leases[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.leases[key] = sem
	}
	r.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	return func() { sem.Release(1) }, nil
}
