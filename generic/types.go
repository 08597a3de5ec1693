/*
Package generic provides the domain-agnostic entitlement engine.

PURPOSE:
  Types and algorithms shared by every entitlement domain: quantities of days,
  calendar arithmetic, anniversary periods, and the append-only ledger that
  records every reservation, consumption and release. The vacation package
  builds its calculator, ledger and request lifecycle on top of these.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: a quantity of days backed by decimal.Decimal
  - Transaction: an immutable ledger entry
  - EntityID / TransactionID: typed identifiers

DESIGN PRINCIPLES:
  1. Immutability: transactions are never modified, only reversed
  2. Precision: proration uses decimal.Decimal, results are floored to whole days
  3. Type safety: typed ids prevent mixing employees and transactions
  4. Auditability: every transaction carries a reference, reason and idempotency key

SEE ALSO:
  - ledger.go: append-only ledger over a Store
  - balance.go: tallies of reserved / consumed / released amounts
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of days
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays Unit = "days"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Days is shorthand for NewAmountFromInt(n, UnitDays).
func Days(n int) Amount { return NewAmountFromInt(n, UnitDays) }

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

// WholeDays floors the amount to an integer number of days. Negative amounts
// floor towards negative infinity.
func (a Amount) WholeDays() int {
	return int(a.Value.Floor().IntPart())
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type TransactionID string

// ResourceType identifies which allotment a transaction moves.
// Domain packages define their own concrete types:
//
//	type Kind string
//	func (k Kind) ResourceID() string     { return string(k) }
//	func (k Kind) ResourceDomain() string { return "vacation" }
type ResourceType interface {
	ResourceID() string
	ResourceDomain() string
}

// =============================================================================
// TRANSACTION - Atomic change to an allotment
// =============================================================================

type TransactionType string

const (
	TxPending     TransactionType = "pending"     // days held for a pending request
	TxConsumption TransactionType = "consumption" // days spent by an approved request
	TxReversal    TransactionType = "reversal"    // undo of a pending or consumption entry
	TxAdjustment  TransactionType = "adjustment"  // manual correction
)

// Transaction is one ledger entry. Period scopes the entry to a yearly
// allotment; ReferenceID binds it to the reservation that produced it.
type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	Period         int
	ResourceType   ResourceType
	EffectiveAt    TimePoint
	Delta          Amount
	Type           TransactionType
	ReferenceID    string
	Reason         string
	IdempotencyKey string

	CreatedBy string
	CreatedAt time.Time
}
