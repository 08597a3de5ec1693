/*
ledger.go - Append-only transaction log

PURPOSE:
  The Ledger is the source of truth for every movement of an allotment.
  Reservations, consumptions and releases are recorded here; the stored
  balance snapshot is only a cache that can always be rebuilt by replaying
  the ledger on top of the computed allotment.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  A mistake is never edited. A reversal with the opposite sign is appended
  and both entries stay in the ledger.

EXAMPLE FLOW (5 libres days):
  1. Submit:  TxPending     -5   (ref t1, key reserve:t1)
  2. Approve: TxReversal    +5   (ref t1, key commit:t1)
              TxConsumption -5   (ref t1, key commit:t1:consume)
  3. Cancel:  TxReversal    +5   (ref t1, key release:t1)

  Net for t1 after step 2: -5. After step 3: 0.

SEE ALSO:
  - store.go: Low-level persistence interface
  - balance.go: Tally and per-reference state derivation
  - vacation/ledger.go: Reserve / Commit / Release on top of this log
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

// Ledger is the source of truth for all allotment movements.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch adds multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Transactions returns all transactions for entity+period, chronologically.
	Transactions(ctx context.Context, entityID EntityID, period int) ([]Transaction, error)

	// ByReference returns every transaction bound to a reservation.
	ByReference(ctx context.Context, referenceID string) ([]Transaction, error)

	// Net sums the deltas for entity+period+resource.
	Net(ctx context.Context, entityID EntityID, period int, resource ResourceType) (Amount, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if err := l.checkKey(ctx, tx.IdempotencyKey); err != nil {
		return err
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, txs []Transaction) error {
	// Check all idempotency keys first
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
		if err := l.checkKey(ctx, tx.IdempotencyKey); err != nil {
			return err
		}
	}
	return l.Store.AppendBatch(ctx, txs)
}

func (l *DefaultLedger) checkKey(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	exists, err := l.Store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateIdempotencyKey
	}
	return nil
}

func (l *DefaultLedger) Transactions(ctx context.Context, entityID EntityID, period int) ([]Transaction, error) {
	return l.Store.Load(ctx, entityID, period)
}

func (l *DefaultLedger) ByReference(ctx context.Context, referenceID string) ([]Transaction, error) {
	return l.Store.LoadByReference(ctx, referenceID)
}

func (l *DefaultLedger) Net(ctx context.Context, entityID EntityID, period int, resource ResourceType) (Amount, error) {
	txs, err := l.Store.Load(ctx, entityID, period)
	if err != nil {
		return Amount{}, err
	}
	net := NewAmountFromInt(0, UnitDays)
	for _, tx := range txs {
		if tx.ResourceType == nil || tx.ResourceType.ResourceID() != resource.ResourceID() {
			continue
		}
		net = net.Add(tx.Delta)
	}
	return net, nil
}
