/*
balance.go - Tallies over ledger transactions

PURPOSE:
  Summarizes a slice of transactions into the amounts the services need:
  how many days are held by open reservations, how many were consumed by
  committed ones, and the net movement to subtract from an allotment.

RESERVATION STATES:
  Every reservation is identified by the ReferenceID of its transactions.
  Its state is derived, never stored:

    held      TxPending present, no consumption, net < 0
    consumed  TxConsumption present, net < 0
    reversed  at least one reversal and net == 0

AVAILABILITY:
  available(kind) = allotment(kind) + Net(kind)

  Net is negative while days are held or consumed and returns to zero
  when a reservation is released.

SEE ALSO:
  - ledger.go: where the transactions come from
  - vacation/ledger.go: Reserve / Commit / Release
*/
package generic

// =============================================================================
// REFERENCE STATE - Derived lifecycle of one reservation
// =============================================================================

type ReferenceState string

const (
	RefUnknown  ReferenceState = ""
	RefHeld     ReferenceState = "held"
	RefConsumed ReferenceState = "consumed"
	RefReversed ReferenceState = "reversed"
)

// StateOf derives the state of a single reservation from its transactions.
func StateOf(txs []Transaction) ReferenceState {
	if len(txs) == 0 {
		return RefUnknown
	}
	var (
		net         = NewAmountFromInt(0, UnitDays)
		pending     bool
		consumption bool
		reversals   int
	)
	for _, tx := range txs {
		net = net.Add(tx.Delta)
		switch tx.Type {
		case TxPending:
			pending = true
		case TxConsumption:
			consumption = true
		case TxReversal:
			reversals++
		}
	}
	switch {
	case reversals > 0 && net.IsZero():
		return RefReversed
	case consumption:
		return RefConsumed
	case pending:
		return RefHeld
	}
	return RefUnknown
}

// =============================================================================
// TALLY - Aggregate over many reservations
// =============================================================================

// Tally aggregates the transactions of one allotment. Held and Consumed are
// reported as positive day counts.
type Tally struct {
	Net      Amount
	Held     Amount
	Consumed Amount
	Adjusted Amount
}

// Summarize groups txs by reference and tallies each group by its state.
// Transactions without a reference count as adjustments.
func Summarize(txs []Transaction) Tally {
	t := Tally{
		Net:      NewAmountFromInt(0, UnitDays),
		Held:     NewAmountFromInt(0, UnitDays),
		Consumed: NewAmountFromInt(0, UnitDays),
		Adjusted: NewAmountFromInt(0, UnitDays),
	}

	groups := make(map[string][]Transaction)
	var order []string
	for _, tx := range txs {
		t.Net = t.Net.Add(tx.Delta)
		if tx.ReferenceID == "" {
			t.Adjusted = t.Adjusted.Add(tx.Delta)
			continue
		}
		if _, ok := groups[tx.ReferenceID]; !ok {
			order = append(order, tx.ReferenceID)
		}
		groups[tx.ReferenceID] = append(groups[tx.ReferenceID], tx)
	}

	for _, ref := range order {
		group := groups[ref]
		net := NewAmountFromInt(0, UnitDays)
		for _, tx := range group {
			net = net.Add(tx.Delta)
		}
		switch StateOf(group) {
		case RefHeld:
			t.Held = t.Held.Add(net.Neg())
		case RefConsumed:
			t.Consumed = t.Consumed.Add(net.Neg())
		}
	}
	return t
}

// FilterResource keeps the transactions that move the given resource.
func FilterResource(txs []Transaction, resource ResourceType) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if tx.ResourceType != nil && tx.ResourceType.ResourceID() == resource.ResourceID() {
			out = append(out, tx)
		}
	}
	return out
}
