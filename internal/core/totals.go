package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregate sums line results into document totals.
//
// Net and VAT are summed independently and the total is derived from them, never
// by summing gross and subtracting. The function keeps no state: it always works
// from the full line set, so it can run on every keystroke without drift, and its
// result does not depend on line order.
func Aggregate(lines []LineResult) DocumentTotals {
	totals := DocumentTotals{
		Subtotal:    decimal.Zero,
		VATAmount:   decimal.Zero,
		VATByBucket: make(map[string]decimal.Decimal),
	}
	for _, l := range lines {
		totals.Subtotal = totals.Subtotal.Add(l.NetAmount)
		totals.VATAmount = totals.VATAmount.Add(l.VATAmount)

		label := RateLabel(l.Rate)
		bucket, ok := totals.VATByBucket[label]
		if !ok {
			bucket = decimal.Zero
		}
		totals.VATByBucket[label] = bucket.Add(l.VATAmount)
	}
	totals.Total = totals.Subtotal.Add(totals.VATAmount)
	return totals
}

// RateLabel formats a VAT rate as a bucket key: 15 -> "15%", 7.50 -> "7.5%".
func RateLabel(rate decimal.Decimal) string {
	return rate.String() + "%"
}

// VATBucket is one row of the statutory VAT breakdown.
type VATBucket struct {
	Label  string          `json:"label"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Buckets returns the VAT breakdown ordered by ascending rate.
func (t DocumentTotals) Buckets() []VATBucket {
	out := make([]VATBucket, 0, len(t.VATByBucket))
	for label, amount := range t.VATByBucket {
		rate, err := decimal.NewFromString(label[:len(label)-1])
		if err != nil {
			rate = decimal.Zero
		}
		out = append(out, VATBucket{Label: label, Rate: rate, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.LessThan(out[j].Rate) })
	return out
}
