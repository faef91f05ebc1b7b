package dedup

import (
	"fmt"
	"sync"

	"snapback/internal/replica"
)

// Key identifies a waiting sync.
type Key struct {
	Type      replica.SyncType
	Wallet    string
	Secondary string
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf("%s::%s::%s", k.Type, k.Wallet, k.Secondary)
}

// KeyOf returns the dedup key of a sync request.
func KeyOf(req replica.SyncRequest) Key {
	return Key{Type: req.Type, Wallet: req.Wallet, Secondary: req.SecondaryEndpoint}
}

// Deduplicator maps waiting syncs to the handle of the job that was queued
// for them. The zero value is not usable; use New.
type Deduplicator[H any] struct {
	mu      sync.Mutex
	waiting map[Key]H
}

// New creates an empty deduplicator.
func New[H any]() *Deduplicator[H] {
	return &Deduplicator[H]{waiting: make(map[Key]H)}
}

// Get returns the handle of the waiting sync for key, if any.
func (d *Deduplicator[H]) Get(key Key) (H, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.waiting[key]
	return h, ok
}

// Record stores the handle for key, overwriting any previous one.
func (d *Deduplicator[H]) Record(key Key, handle H) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waiting[key] = handle
}

// Remove forgets key. It is a no-op when key is absent.
func (d *Deduplicator[H]) Remove(key Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waiting, key)
}

// GetOrRecord returns the waiting handle for key if one exists. Otherwise it
// calls create and records its handle. The lookup and the insert happen under
// one lock, so concurrent callers for the same key queue exactly one job.
// existing is true when the returned handle was already waiting.
func (d *Deduplicator[H]) GetOrRecord(key Key, create func() (H, error)) (handle H, existing bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.waiting[key]; ok {
		return h, true, nil
	}
	h, err := create()
	if err != nil {
		return h, false, err
	}
	d.waiting[key] = h
	return h, false, nil
}

// Len returns the number of waiting syncs.
func (d *Deduplicator[H]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiting)
}
