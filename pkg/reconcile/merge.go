package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/fundquorum/internal/g"
	"github.com/arnac-io/fundquorum/pkg/core"
)

// OperationStatus is one row of the withdrawal detail listing.
type OperationStatus struct {
	OperationID uint64
	Confirmed   bool
	// Indexed is false for operations the Indexer has not seen yet.
	Indexed bool
	Record  core.WithdrawalRecord
}

type Report struct {
	Operations  []OperationStatus
	Total       int
	Unconfirmed int
	// Percent is the unconfirmed share rounded to one decimal, "0" when there are no operations.
	Percent   string
	Stale     bool
	Error     string
	UpdatedAt time.Time
}

var hundred = decimal.NewFromInt(100)

// Merge combines the live pending set with Indexer history. An id in the pending
// set is unconfirmed whatever history says, an id only in history is confirmed.
// Operations are ordered by id descending.
func Merge(pending []uint64, history []core.WithdrawalRecord) Report {
	statuses := make(map[uint64]OperationStatus, len(history)+len(pending))
	for _, rec := range history {
		statuses[rec.OperationID] = OperationStatus{
			OperationID: rec.OperationID,
			Confirmed:   true,
			Indexed:     true,
			Record:      rec,
		}
	}
	unconfirmed := 0
	for _, id := range pending {
		st, ok := statuses[id]
		if ok && !st.Confirmed {
			continue
		}
		if !ok {
			st = OperationStatus{OperationID: id, Record: core.WithdrawalRecord{OperationID: id}}
		}
		st.Confirmed = false
		statuses[id] = st
		unconfirmed++
	}
	ids := g.SortedKeys(statuses)
	slices.Reverse(ids)
	ops := make([]OperationStatus, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, statuses[id])
	}
	return Report{
		Operations:  ops,
		Total:       len(ops),
		Unconfirmed: unconfirmed,
		Percent:     Percent(unconfirmed, len(ops)),
	}
}

// Percent returns part/total*100 with one decimal place.
func Percent(part, total int) string {
	if total == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}

// DonationPoint is a donation together with the running total up to and including it.
type DonationPoint struct {
	Donation   core.Donation
	Cumulative decimal.Decimal
}

// CumulativeDonations orders donations by time and accumulates their amounts.
func CumulativeDonations(donations []core.Donation) []DonationPoint {
	sorted := slices.Clone(donations)
	slices.SortStableFunc(sorted, func(a, b core.Donation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	points := make([]DonationPoint, 0, len(sorted))
	total := decimal.Zero
	for _, d := range sorted {
		total = total.Add(d.Amount)
		points = append(points, DonationPoint{Donation: d, Cumulative: total})
	}
	return points
}
