package generic_test

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/vacation-engine/generic"
)

// memStore is an in-memory generic.EntityStore for ledger tests.
type memStore struct {
	mu          sync.Mutex
	byEntity    map[generic.EntityID][]generic.Transaction
	idempotency map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		byEntity:    make(map[generic.EntityID][]generic.Transaction),
		idempotency: make(map[string]bool),
	}
}

func (m *memStore) Append(ctx context.Context, tx generic.Transaction) error {
	return m.AppendBatch(ctx, []generic.Transaction{tx})
}

func (m *memStore) AppendBatch(_ context.Context, txs []generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[tx.IdempotencyKey] || seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}
	for _, tx := range txs {
		m.byEntity[tx.EntityID] = append(m.byEntity[tx.EntityID], tx)
		if tx.IdempotencyKey != "" {
			m.idempotency[tx.IdempotencyKey] = true
		}
	}
	return nil
}

func (m *memStore) Load(_ context.Context, entityID generic.EntityID, period int) ([]generic.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.Transaction
	for _, tx := range m.byEntity[entityID] {
		if tx.Period == period {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

func (m *memStore) LoadByReference(_ context.Context, referenceID string) ([]generic.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []generic.Transaction
	for _, txs := range m.byEntity {
		for _, tx := range txs {
			if tx.ReferenceID == referenceID {
				out = append(out, tx)
			}
		}
	}
	return out, nil
}

func (m *memStore) LoadByEntity(_ context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]generic.Transaction(nil), m.byEntity[entityID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

func (m *memStore) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idempotency[idempotencyKey], nil
}
