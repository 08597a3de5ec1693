/*
store.go - Persistence interface for ledger transactions

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  keeps append-only semantics; domain packages extend it with their own
  tables (requests, employees, snapshots) and a transactional wrapper.

APPEND-ONLY CONTRACT:
  - Append(): Single transaction write
  - AppendBatch(): Atomic multi-transaction write
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  Every write carries an idempotency key. If the key already exists the
  write is rejected with ErrDuplicateIdempotencyKey, so a retried commit or
  release can never be applied twice.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: durable SQLite store
  - generic/memstore_test.go: in-memory store for the ledger tests

SEE ALSO:
  - ledger.go: Higher-level interface using Store
  - vacation/store.go: the full domain store used by the services
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for transaction persistence (append-only)
// =============================================================================

// Store handles persistence of transactions.
type Store interface {
	// Append persists a transaction. Returns error if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for entity+period, ordered by EffectiveAt.
	Load(ctx context.Context, entityID EntityID, period int) ([]Transaction, error)

	// LoadByReference returns the transactions bound to one reservation,
	// in insertion order.
	LoadByReference(ctx context.Context, referenceID string) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// EntityStore extends Store with entity-wide queries.
type EntityStore interface {
	Store

	// LoadByEntity returns ALL transactions for an entity across periods.
	LoadByEntity(ctx context.Context, entityID EntityID) ([]Transaction, error)
}
