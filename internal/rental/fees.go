package rental

import "github.com/shopspring/decimal"

// DefaultLateFeeRate is the share of the daily price charged per day late.
var DefaultLateFeeRate = decimal.RequireFromString("0.5")

// Price is pricePerDay × days, rounded to cents.
func Price(pricePerDay decimal.Decimal, days int) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// LateFee is pricePerDay × rate × whole days between due and returned. Returns
// on or before the due date cost nothing.
func LateFee(pricePerDay, rate decimal.Decimal, due, returned Date) decimal.Decimal {
	if !returned.After(due) {
		return decimal.Zero
	}
	daysLate := returned.DaysSince(due)
	return pricePerDay.Mul(rate).Mul(decimal.NewFromInt(int64(daysLate))).Round(2)
}
