/*
balance.go - Running-balance derivation

PURPOSE:
  Pure derivation of the running-credit / running-debit / cumulative state
  carried on every ledger entry. No I/O; the engine feeds it the prior
  entry's balances (or nil for a brand-new pair).

CLASSIFICATION:
  Credit types: Adjustment, Dispute, Cash, Cheque - raise running credit by
  the absolute amount. Adjustment and Dispute may arrive negative; a
  negative amount is a correction charged to the debit side instead.
  Debit types: Bill, Return Cheque - raise running debit.

  Cumulative = credit - debit, forced to zero by a Bill: a bill restates
  the arrears and wipes any notion of settlement progress; a Return Cheque
  flows through the normal subtraction.

SEE ALSO:
  - match.go: consumes the cumulative balance
  - engine.go: threads prior state into Apply
*/
package ledger

import "github.com/shopspring/decimal"

// Apply derives the balances after applying one transaction to the prior
// state. Pure: identical inputs always yield identical outputs. Pass nil
// prior for the first transaction of a (case, settlement) pair.
func Apply(prior *Balances, txType TransactionType, amount decimal.Decimal) Balances {
	var next Balances
	if prior != nil {
		next.RunningCredit = prior.RunningCredit
		next.RunningDebit = prior.RunningDebit
	} else {
		next.RunningCredit = decimal.Zero
		next.RunningDebit = decimal.Zero
	}

	abs := amount.Abs()
	switch {
	case txType.IsDebit():
		next.RunningDebit = next.RunningDebit.Add(abs)
	case amount.IsNegative() && (txType == TxAdjustment || txType == TxDispute):
		// Negative adjustments/disputes are corrections against the debtor.
		next.RunningDebit = next.RunningDebit.Add(abs)
	default:
		next.RunningCredit = next.RunningCredit.Add(abs)
	}

	if txType == TxBill {
		next.Cumulative = decimal.Zero
	} else {
		next.Cumulative = next.RunningCredit.Sub(next.RunningDebit)
	}
	return next
}
